package backend_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/modflow/backend"
	"github.com/wansing/modflow/core"
	"github.com/wansing/modflow/sqldb"
)

func newServer(t *testing.T) (*core.CoreDB, http.Handler) {

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	var db = &core.CoreDB{}
	db.GrantDB = sqldb.NewGrantDB(sqlDB)
	db.NodeDB = sqldb.NewNodeDB(sqlDB)
	db.PublicDB = sqldb.NewPublicDB(sqlDB)
	db.UserDB = sqldb.NewUserDB(sqlDB)

	_, err = db.InsertUser("super", true, true)
	require.NoError(t, err)

	return db, backend.NewBackendRouter(db)
}

func post(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPublishFlow(t *testing.T) {

	_, handler := newServer(t)

	// create a root node

	rec := post(t, handler, "/node", url.Values{
		"actor": {"super"},
		"slug":  {"home"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "changed", body["state"])
	assert.Equal(t, false, body["public"])

	// publish it, no moderators means immediate approval

	rec = post(t, handler, "/node/1/request-publish", url.Values{
		"actor": {"super"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decode(t, rec)["state"])

	// now visible as public

	req := httptest.NewRequest(http.MethodGet, "/node/1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["public"])
}

func TestModeratedFlow(t *testing.T) {

	db, handler := newServer(t)

	editor, err := db.InsertUser("editor", false, true)
	require.NoError(t, err)
	writer, err := db.InsertUser("writer", false, true)
	require.NoError(t, err)

	rec := post(t, handler, "/node", url.Values{
		"actor": {"super"},
		"slug":  {"office"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, db.InsertGrant(editor.ID(), 1, core.AllCapabilities, true))
	require.NoError(t, db.InsertGrant(writer.ID(), 1, core.AllCapabilities, false))

	rec = post(t, handler, "/node", url.Values{
		"actor":  {"writer"},
		"parent": {"1"},
		"slug":   {"page"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// approving before submission is a conflict

	rec = post(t, handler, "/node/2/approve", url.Values{
		"actor": {"editor"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(t, handler, "/node/2/request-publish", url.Values{
		"actor": {"writer"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "need approvement", decode(t, rec)["state"])

	// the writer is no moderator

	rec = post(t, handler, "/node/2/approve", url.Values{
		"actor": {"writer"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// the editor is, but office is not public yet

	rec = post(t, handler, "/node/2/approve", url.Values{
		"actor": {"editor"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved, waiting for parents", decode(t, rec)["state"])
}

func TestErrorMapping(t *testing.T) {

	_, handler := newServer(t)

	// no actor, no permission

	rec := post(t, handler, "/node", url.Values{
		"slug": {"home"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unknown actor

	rec = post(t, handler, "/node", url.Values{
		"actor": {"ghost"},
		"slug":  {"home"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// unknown node

	rec = post(t, handler, "/node/4711/approve", url.Values{
		"actor": {"super"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// malformed node id

	rec = post(t, handler, "/node/x/approve", url.Values{
		"actor": {"super"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCopyAndDelete(t *testing.T) {

	_, handler := newServer(t)

	rec := post(t, handler, "/node", url.Values{
		"actor": {"super"},
		"slug":  {"home"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = post(t, handler, "/node", url.Values{
		"actor":  {"super"},
		"parent": {"1"},
		"slug":   {"page"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = post(t, handler, "/node/2/copy", url.Values{
		"actor":  {"super"},
		"target": {"1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "page-2", body["slug"])
	assert.Equal(t, "changed", body["state"])

	req := httptest.NewRequest(http.MethodDelete, "/node/3?actor=super", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
