package schedule

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupRouter(repo *MockRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(NewService(repo))
	r.POST("/admin/availability/templates", h.CreateTemplate)
	r.DELETE("/admin/availability/templates/:id", h.DeleteTemplate)
	r.GET("/admin/policy", h.GetPolicy)
	r.PUT("/admin/policy", h.UpdatePolicy)
	return r
}

func TestHandler_CreateTemplateOverlap(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListTemplates", mock.Anything).
		Return([]Template{{ID: 1, DayOfWeek: 1, StartTime: 540, EndTime: 720}}, nil)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"day_of_week":1,"start_time":"10:00","end_time":"11:00"}`)
	req, _ := http.NewRequest(http.MethodPost, "/admin/availability/templates", body)
	req.Header.Set("Content-Type", "application/json")
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_CreateTemplateSunday(t *testing.T) {
	repo := new(MockRepository)
	repo.On("ListTemplates", mock.Anything).Return([]Template{}, nil)
	repo.On("CreateTemplate", mock.Anything, 0, Clock(600), Clock(660)).
		Return(&Template{ID: 3, DayOfWeek: 0, StartTime: 600, EndTime: 660}, nil)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"day_of_week":0,"start_time":"10:00","end_time":"11:00"}`)
	req, _ := http.NewRequest(http.MethodPost, "/admin/availability/templates", body)
	req.Header.Set("Content-Type", "application/json")
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"start_time":"10:00"`)
}

func TestHandler_DeleteTemplateNotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("DeleteTemplate", mock.Anything, 5).Return(ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/admin/availability/templates/5", nil)
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_GetPolicy(t *testing.T) {
	repo := new(MockRepository)
	p := DefaultPolicy()
	repo.On("GetPolicy", mock.Anything).Return(&p, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/admin/policy", nil)
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancellation_notice_hours":24`)
}

func TestHandler_UpdatePolicyRejectsBadWindow(t *testing.T) {
	repo := new(MockRepository)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"booking_window_days":0,"timezone":"UTC"}`)
	req, _ := http.NewRequest(http.MethodPut, "/admin/policy", body)
	req.Header.Set("Content-Type", "application/json")
	setupRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
