package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

type mockBoards struct {
	board *domain.Board
	list  *domain.List
	task  *domain.Task
	snap  *domain.Snapshot
	err   error

	lastBoardID string
	lastListID  string
	lastTaskID  string
	lastTitle   string
	lastParams  domain.CreateTaskParams
	lastPatch   domain.TaskPatch
	deleted     []string
}

func (m *mockBoards) CreateBoard(ctx context.Context, ownerID, title string) (*domain.Board, error) {
	m.lastTitle = title
	return m.board, m.err
}

func (m *mockBoards) Snapshot(ctx context.Context, boardID, userID string) (*domain.Snapshot, error) {
	m.lastBoardID = boardID
	return m.snap, m.err
}

func (m *mockBoards) UpdateBoard(ctx context.Context, boardID, actorID string, patch domain.BoardPatch) (*domain.Board, error) {
	m.lastBoardID = boardID
	return m.board, m.err
}

func (m *mockBoards) DeleteBoard(ctx context.Context, boardID, actorID string) error {
	m.deleted = append(m.deleted, boardID)
	return m.err
}

func (m *mockBoards) CreateList(ctx context.Context, boardID, title string) (*domain.List, error) {
	m.lastBoardID = boardID
	m.lastTitle = title
	return m.list, m.err
}

func (m *mockBoards) UpdateList(ctx context.Context, listID string, patch domain.ListPatch) (*domain.List, error) {
	m.lastListID = listID
	return m.list, m.err
}

func (m *mockBoards) DeleteList(ctx context.Context, listID string) error {
	m.deleted = append(m.deleted, listID)
	return m.err
}

func (m *mockBoards) CreateTask(ctx context.Context, p domain.CreateTaskParams) (*domain.Task, error) {
	m.lastParams = p
	return m.task, m.err
}

func (m *mockBoards) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	m.lastTaskID = taskID
	m.lastPatch = patch
	return m.task, m.err
}

func (m *mockBoards) DeleteTask(ctx context.Context, taskID string) error {
	m.deleted = append(m.deleted, taskID)
	return m.err
}

type mockAuth struct{}

func (mockAuth) UserIDFromAuthHeader(string) (string, error) { return "user", nil }

type failAuth struct{}

func (failAuth) UserIDFromAuthHeader(string) (string, error) {
	return "", errMissingAuthorization
}

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer token")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateBoard(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{board: &domain.Board{ID: "b1", Title: "Roadmap", OwnerID: "user"}}
	c, rec := newJSONContext(e, http.MethodPost, "/api/boards", `{"title":"Roadmap"}`)

	if err := createBoard(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}
	if svc.lastTitle != "Roadmap" {
		t.Fatalf("expected title to be forwarded, got %q", svc.lastTitle)
	}
	var board domain.Board
	if err := sonic.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if board.ID != "b1" {
		t.Fatalf("unexpected board: %#v", board)
	}
}

func TestCreateBoardRejectsUnknownFields(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{}
	c, rec := newJSONContext(e, http.MethodPost, "/api/boards", `{"title":"x","bogus":true}`)

	if err := createBoard(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
}

func TestGetBoardSnapshot(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{snap: &domain.Snapshot{
		Board: domain.Board{ID: "b1", Title: "Roadmap"},
		Lists: []domain.List{{ID: "l1", BoardID: "b1", Position: 1024}},
		Tasks: []domain.Task{{ID: "t1", ListID: "l1", BoardID: "b1", Position: 1024}},
	}}
	c, rec := newJSONContext(e, http.MethodGet, "/api/boards/b1", "")
	c.SetParamNames("id")
	c.SetParamValues("b1")

	if err := getBoard(svc, mockAuth{}, log.New())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if svc.lastBoardID != "b1" {
		t.Fatalf("expected board id to be forwarded, got %q", svc.lastBoardID)
	}
	var snap domain.Snapshot
	if err := sonic.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if snap.Board.ID != "b1" || len(snap.Lists) != 1 || len(snap.Tasks) != 1 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestErrorMapping(t *testing.T) {
	testCases := map[string]struct {
		err    error
		status int
	}{
		"not_found":    {domain.ErrNotFound, http.StatusNotFound},
		"unauthorized": {domain.ErrUnauthorized, http.StatusUnauthorized},
		"validation":   {domain.ErrValidation, http.StatusBadRequest},
		"conflict":     {domain.ErrConcurrencyConflict, http.StatusConflict},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			svc := &mockBoards{err: tc.err}
			c, rec := newJSONContext(e, http.MethodGet, "/api/boards/b1", "")
			c.SetParamNames("id")
			c.SetParamValues("b1")

			if err := getBoard(svc, mockAuth{}, log.New())(c); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestHandlersRejectMissingAuth(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{}
	c, rec := newJSONContext(e, http.MethodPost, "/api/tasks", `{"listId":"l1","title":"x"}`)

	if err := createTask(svc, failAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 got %d", rec.Code)
	}
	if svc.lastParams.Title != "" {
		t.Fatalf("expected service to not be called without auth")
	}
}

func TestCreateTaskIgnoresClientBoardID(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{task: &domain.Task{ID: "t1", ListID: "l1", BoardID: "server-board"}}
	body := `{"listId":"l1","title":"Ship it","priority":"High","boardId":"client-board"}`
	c, rec := newJSONContext(e, http.MethodPost, "/api/tasks", body)

	if err := createTask(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}
	if svc.lastParams.ListID != "l1" || svc.lastParams.Title != "Ship it" {
		t.Fatalf("unexpected params: %#v", svc.lastParams)
	}
	var task domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if task.BoardID != "server-board" {
		t.Fatalf("expected server-derived board, got %q", task.BoardID)
	}
}

func TestUpdateTaskForwardsPatch(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{task: &domain.Task{ID: "t1", ListID: "l2"}}
	c, rec := newJSONContext(e, http.MethodPut, "/api/tasks/t1", `{"listId":"l2","position":512}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTask(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if svc.lastTaskID != "t1" {
		t.Fatalf("expected task id to be forwarded, got %q", svc.lastTaskID)
	}
	if svc.lastPatch.ListID == nil || *svc.lastPatch.ListID != "l2" {
		t.Fatalf("expected list move in patch: %#v", svc.lastPatch)
	}
	if svc.lastPatch.Position == nil || *svc.lastPatch.Position != 512 {
		t.Fatalf("expected position in patch: %#v", svc.lastPatch)
	}
}

func TestUpdateTaskRejectsUnknownFields(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{}
	c, rec := newJSONContext(e, http.MethodPut, "/api/tasks/t1", `{"boardId":"sneaky"}`)
	c.SetParamNames("id")
	c.SetParamValues("t1")

	if err := updateTask(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if svc.lastTaskID != "" {
		t.Fatalf("expected service to not be called for invalid body")
	}
}

func TestDeleteTaskRespondsWithID(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{}
	c, rec := newJSONContext(e, http.MethodDelete, "/api/tasks/t9", "")
	c.SetParamNames("id")
	c.SetParamValues("t9")

	if err := deleteTask(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var resp deletedResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "t9" {
		t.Fatalf("unexpected id: %q", resp.ID)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "t9" {
		t.Fatalf("unexpected deletes: %#v", svc.deleted)
	}
}

func TestCreateList(t *testing.T) {
	e := echo.New()
	svc := &mockBoards{list: &domain.List{ID: "l1", BoardID: "b1", Title: "Doing", Position: 2048}}
	c, rec := newJSONContext(e, http.MethodPost, "/api/lists", `{"boardId":"b1","title":"Doing"}`)

	if err := createList(svc, mockAuth{})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}
	if svc.lastBoardID != "b1" || svc.lastTitle != "Doing" {
		t.Fatalf("unexpected forwarded values: board=%q title=%q", svc.lastBoardID, svc.lastTitle)
	}
}

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := healthz()(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
}
