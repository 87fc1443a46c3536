package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/wansing/modflow/auth"
	"github.com/wansing/modflow/core"
)

var errBadRequest = errors.New("bad request")

// we need the CoreDB in every handler
type context struct {
	db        *core.CoreDB
	Actor     auth.User // nil if the request names no actor
	RequestID string
}

func middleware(db *core.CoreDB, f func(http.ResponseWriter, *http.Request, *context, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = &context{
			db:        db,
			RequestID: uuid.NewString(),
		}

		log.Printf("[%s] %s %s", ctx.RequestID, req.Method, req.URL.Path)

		if name := req.FormValue("actor"); name != "" {
			actor, err := db.UserDB.GetUserByName(name)
			if err != nil {
				if db.UserDB.IsNotFound(err) {
					err = fmt.Errorf("actor %s: %w", name, core.ErrNotFound)
				}
				writeError(w, ctx, err)
				return
			}
			ctx.Actor = actor
		}

		if err := f(w, req, ctx, params); err != nil {
			writeError(w, ctx, err)
		}
	}
}

// NewBackendRouter returns the HTTP surface of the engine: one route per
// engine operation, errors mapped to transport-level statuses. The acting
// user is named by the "actor" parameter, authentication is the proxy's
// concern.
func NewBackendRouter(db *core.CoreDB) http.Handler {

	var router = httprouter.New()

	router.POST("/node", middleware(db, create))
	router.GET("/node/:id", middleware(db, getNode))
	router.DELETE("/node/:id", middleware(db, del))
	router.POST("/node/:id/edit", middleware(db, edit))
	router.POST("/node/:id/request-publish", middleware(db, requestPublish))
	router.POST("/node/:id/approve", middleware(db, approve))
	router.POST("/node/:id/copy", middleware(db, copyNode))

	return router
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, ctx *context, err error) {
	log.Printf("[%s] error: %v", ctx.RequestID, err)
	writeJSON(w, httpStatus(err), map[string]string{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func paramID(params httprouter.Params) (int, error) {
	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil {
		return 0, fmt.Errorf("node id %q: %w", params.ByName("id"), errBadRequest)
	}
	return id, nil
}

func formID(req *http.Request, key string) (int, error) {
	var value = req.PostFormValue(key)
	if value == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, value, errBadRequest)
	}
	return id, nil
}

type nodeResponse struct {
	ID     int    `json:"id"`
	Parent int    `json:"parent"`
	Slug   string `json:"slug"`
	State  string `json:"state"`
	Public bool   `json:"public"`
}

func (ctx *context) nodeResponse(n *core.Node) (nodeResponse, error) {
	public, err := ctx.db.HasPublicCounterpart(n.ID())
	if err != nil {
		return nodeResponse{}, err
	}
	return nodeResponse{
		ID:     n.ID(),
		Parent: n.Parent.ID(),
		Slug:   n.Slug(),
		State:  n.State().String(),
		Public: public,
	}, nil
}

func create(w http.ResponseWriter, req *http.Request, ctx *context, _ httprouter.Params) error {

	parentID, err := formID(req, "parent")
	if err != nil {
		return err
	}

	n, err := ctx.db.CreateNode(ctx.Actor, parentID, req.PostFormValue("slug"))
	if err != nil {
		return err
	}

	resp, err := ctx.nodeResponse(n)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, resp)
	return nil
}

func getNode(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := paramID(params)
	if err != nil {
		return err
	}

	n, err := ctx.db.GetNode(id)
	if err != nil {
		return err
	}

	resp, err := ctx.nodeResponse(n)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func edit(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := paramID(params)
	if err != nil {
		return err
	}

	n, err := ctx.db.EditNode(ctx.Actor, id)
	if err != nil {
		return err
	}

	resp, err := ctx.nodeResponse(n)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func requestPublish(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := paramID(params)
	if err != nil {
		return err
	}

	state, err := ctx.db.RequestPublish(ctx.Actor, id)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"state": state.String(),
	})
	return nil
}

func approve(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := paramID(params)
	if err != nil {
		return err
	}

	state, err := ctx.db.Approve(ctx.Actor, id)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"state": state.String(),
	})
	return nil
}

func copyNode(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := paramID(params)
	if err != nil {
		return err
	}

	targetID, err := formID(req, "target")
	if err != nil {
		return err
	}

	n, err := ctx.db.CopySubtree(ctx.Actor, id, targetID)
	if err != nil {
		return err
	}

	resp, err := ctx.nodeResponse(n)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, resp)
	return nil
}

func del(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := paramID(params)
	if err != nil {
		return err
	}

	if err := ctx.db.DeleteNode(ctx.Actor, id); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
