package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tidwall/gjson"
)

func TestWrapHttpRspRendersAppErrors(t *testing.T) {
	ErrGone := apperrors.New("gone").SetStatusCode(http.StatusConflict)
	h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return nil, ErrGone.Msg("scope conflict")
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "scope conflict", gjson.Get(rr.Body.String(), "error").String())
	assert.Equal(t, int64(Failure), gjson.Get(rr.Body.String(), "result").Int())
}

func TestWrapHttpRspSendsJson(t *testing.T) {
	h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{
			StatusCode: http.StatusCreated,
			Location:   "/groups/g1/",
			Response:   map[string]string{"slug": "g1"},
		}, nil
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/groups", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/groups/g1/", rr.Header().Get("Location"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "g1", gjson.Get(rr.Body.String(), "slug").String())
}

func TestWrapHttpRspNoContent(t *testing.T) {
	h := WrapHttpRsp(func(r *http.Request) (*Response, error) {
		return &Response{StatusCode: http.StatusNoContent}, nil
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestGetRequestData(t *testing.T) {
	var body struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"north"}`))
	assert.NoError(t, GetRequestData(req, &body))
	assert.Equal(t, "north", body.Name)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Error(t, GetRequestData(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	err := GetRequestData(req, &body)
	if assert.Error(t, err) {
		assert.Equal(t, http.StatusBadRequest, err.(*Error).StatusCode)
	}
}
