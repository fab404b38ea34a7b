package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/room"
)

// requestMaxSize bounds mutation bodies. Patches are small; anything
// larger is a broken client.
const requestMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Boards, hub *room.Hub, auth Authenticator, logger *log.Logger) {
	e.POST("/api/boards", createBoard(svc, auth))
	e.GET("/api/boards/:id", getBoard(svc, auth, logger))
	e.PUT("/api/boards/:id", updateBoard(svc, auth))
	e.DELETE("/api/boards/:id", deleteBoard(svc, auth))

	e.POST("/api/lists", createList(svc, auth))
	e.PUT("/api/lists/:id", updateList(svc, auth))
	e.DELETE("/api/lists/:id", deleteList(svc, auth))

	e.POST("/api/tasks", createTask(svc, auth))
	e.PUT("/api/tasks/:id", updateTask(svc, auth))
	e.DELETE("/api/tasks/:id", deleteTask(svc, auth))

	e.GET("/ws", boardSocket(hub, auth, logger))
	e.GET("/healthz", healthz())
}

type createBoardRequest struct {
	Title string `json:"title"`
}

type createListRequest struct {
	BoardID string `json:"boardId"`
	Title   string `json:"title"`
}

type createTaskRequest struct {
	domain.CreateTaskParams
	// Some clients send the board alongside the list. The board is always
	// derived from the list server-side, so the value is ignored.
	BoardID string `json:"boardId,omitempty"`
}

type deletedResponse struct {
	ID string `json:"id"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeError maps domain sentinel errors onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return c.String(http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return c.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return c.String(http.StatusConflict, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}

func createBoard(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		board, err := svc.CreateBoard(c.Request().Context(), userID, req.Title)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func getBoard(svc Boards, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newSnapshotRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		fetchStart := time.Now()
		snap, fetchErr := svc.Snapshot(c.Request().Context(), c.Param("id"), userID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("snapshot")
			err = writeError(c, fetchErr)
			return err
		}
		metrics.SetCounts(len(snap.Lists), len(snap.Tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, snap)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func updateBoard(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var patch domain.BoardPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		board, err := svc.UpdateBoard(c.Request().Context(), c.Param("id"), userID, patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id := c.Param("id")
		if err := svc.DeleteBoard(c.Request().Context(), id, userID); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deletedResponse{ID: id})
	}
}

func createList(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createListRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		list, err := svc.CreateList(c.Request().Context(), req.BoardID, req.Title)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, list)
	}
}

func updateList(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var patch domain.ListPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		list, err := svc.UpdateList(c.Request().Context(), c.Param("id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func deleteList(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id := c.Param("id")
		if err := svc.DeleteList(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deletedResponse{ID: id})
	}
}

func createTask(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := svc.CreateTask(c.Request().Context(), req.CreateTaskParams)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := svc.UpdateTask(c.Request().Context(), c.Param("id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id := c.Param("id")
		if err := svc.DeleteTask(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deletedResponse{ID: id})
	}
}
