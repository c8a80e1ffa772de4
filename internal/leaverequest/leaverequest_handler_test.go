package leaverequest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leaveledger/internal/leaverequest"
	leaverequesterrors "leaveledger/internal/leaverequest/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeRequestService struct {
	createFn        func(ctx context.Context, actorID string, req leaverequest.CreateRequest) (leaverequest.Response, error)
	getAllFn        func(ctx context.Context, status string) ([]leaverequest.Response, error)
	getByEmployeeFn func(ctx context.Context, employeeID string) ([]leaverequest.Response, error)
	getByIDFn       func(ctx context.Context, id string) (leaverequest.Response, error)
	approveFn       func(ctx context.Context, actorID, id string) (leaverequest.Response, error)
	rejectFn        func(ctx context.Context, actorID, id, rejectionReason string) (leaverequest.Response, error)
	cancelFn        func(ctx context.Context, actorID, id, cancellationReason string) (leaverequest.Response, error)
}

func (f *fakeRequestService) Create(ctx context.Context, actorID string, req leaverequest.CreateRequest) (leaverequest.Response, error) {
	return f.createFn(ctx, actorID, req)
}
func (f *fakeRequestService) GetAll(ctx context.Context, status string) ([]leaverequest.Response, error) {
	return f.getAllFn(ctx, status)
}
func (f *fakeRequestService) GetByEmployee(ctx context.Context, employeeID string) ([]leaverequest.Response, error) {
	return f.getByEmployeeFn(ctx, employeeID)
}
func (f *fakeRequestService) GetByID(ctx context.Context, id string) (leaverequest.Response, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeRequestService) Approve(ctx context.Context, actorID, id string) (leaverequest.Response, error) {
	return f.approveFn(ctx, actorID, id)
}
func (f *fakeRequestService) Reject(ctx context.Context, actorID, id, rejectionReason string) (leaverequest.Response, error) {
	return f.rejectFn(ctx, actorID, id, rejectionReason)
}
func (f *fakeRequestService) Cancel(ctx context.Context, actorID, id, cancellationReason string) (leaverequest.Response, error) {
	return f.cancelFn(ctx, actorID, id, cancellationReason)
}

func TestRequestHandler_Create(t *testing.T) {
	t.Run("success passes the actor from the employee_id key", func(t *testing.T) {
		actorID := uuid.New().String()
		employeeID := uuid.New().String()

		svc := &fakeRequestService{
			createFn: func(ctx context.Context, aid string, req leaverequest.CreateRequest) (leaverequest.Response, error) {
				assert.Equal(t, actorID, aid)
				assert.Equal(t, employeeID, req.EmployeeID)
				return leaverequest.Response{
					ID:         uuid.New().String(),
					EmployeeID: req.EmployeeID,
					LeaveType:  req.LeaveType,
					Category:   "annual",
					WorkYear:   2,
					StartDate:  req.StartDate,
					EndDate:    req.EndDate,
					TotalDays:  2,
					Status:     leaverequest.StatusPending,
					IsActive:   true,
					CreatedBy:  aid,
				}, nil
			},
		}

		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"employee_id":"` + employeeID + `","leave_type":"AL","start_date":"2026-03-10","end_date":"2026-03-11","reason":"family matters"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leave-requests", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("employee_id", actorID)

		h.Create(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		var got leaverequest.Response
		err := json.Unmarshal(env.Data, &got)
		assert.NoError(t, err)
		assert.Equal(t, employeeID, got.EmployeeID)
		assert.Equal(t, "annual", got.Category)
		assert.Equal(t, 2, got.WorkYear)
		assert.Equal(t, leaverequest.StatusPending, got.Status)
		assert.Equal(t, actorID, got.CreatedBy)
	})

	t.Run("negative validation error", func(t *testing.T) {
		h := leaverequest.NewHandler(&fakeRequestService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leave-requests", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Create(c)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("negative service error", func(t *testing.T) {
		svc := &fakeRequestService{
			createFn: func(ctx context.Context, actorID string, req leaverequest.CreateRequest) (leaverequest.Response, error) {
				return leaverequest.Response{}, errors.New("create failed")
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"employee_id":"` + uuid.New().String() + `","leave_type":"AL","start_date":"2026-03-10","end_date":"2026-03-11"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leave-requests", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("employee_id", uuid.New().String())

		h.Create(c)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	})

	t.Run("negative overlap returns conflict", func(t *testing.T) {
		svc := &fakeRequestService{
			createFn: func(ctx context.Context, actorID string, req leaverequest.CreateRequest) (leaverequest.Response, error) {
				return leaverequest.Response{}, leaverequesterrors.ErrOverlappingRequest
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"employee_id":"` + uuid.New().String() + `","leave_type":"AL","start_date":"2026-03-10","end_date":"2026-03-11"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leave-requests", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("employee_id", uuid.New().String())

		h.Create(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "CONFLICT", env.Error.Code)
		assert.Equal(t, "leave request overlaps an existing one", env.Error.Message)
	})
}

func TestRequestHandler_GetAll(t *testing.T) {
	t.Run("passes the status filter through", func(t *testing.T) {
		svc := &fakeRequestService{
			getAllFn: func(ctx context.Context, status string) ([]leaverequest.Response, error) {
				assert.Equal(t, leaverequest.StatusPending, status)
				return []leaverequest.Response{{ID: uuid.New().String(), Status: leaverequest.StatusPending}}, nil
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave-requests?status=PENDING", nil)

		h.GetAll(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		var got []leaverequest.Response
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Len(t, got, 1)
	})

	t.Run("employee_id query routes to the per-employee listing", func(t *testing.T) {
		employeeID := uuid.New().String()
		svc := &fakeRequestService{
			getByEmployeeFn: func(ctx context.Context, eid string) ([]leaverequest.Response, error) {
				assert.Equal(t, employeeID, eid)
				return nil, nil
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave-requests?employee_id="+employeeID, nil)

		h.GetAll(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestHandler_GetById(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc := &fakeRequestService{
			getByIDFn: func(ctx context.Context, id string) (leaverequest.Response, error) {
				return leaverequest.Response{}, leaverequesterrors.ErrRequestNotFound
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave-requests/"+uuid.New().String(), nil)
		c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

		h.GetById(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})
}

func TestRequestHandler_Approve(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		actorID := uuid.New().String()
		requestID := uuid.New().String()
		svc := &fakeRequestService{
			approveFn: func(ctx context.Context, aid, id string) (leaverequest.Response, error) {
				assert.Equal(t, actorID, aid)
				assert.Equal(t, requestID, id)
				return leaverequest.Response{ID: id, Status: leaverequest.StatusApproved}, nil
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave-requests/"+requestID+"/approve", nil)
		c.Params = gin.Params{{Key: "id", Value: requestID}}
		c.Set("employee_id", actorID)

		h.Approve(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
	})

	t.Run("non-pending request is a bad request", func(t *testing.T) {
		svc := &fakeRequestService{
			approveFn: func(ctx context.Context, actorID, id string) (leaverequest.Response, error) {
				return leaverequest.Response{}, leaverequesterrors.ErrNotPending
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave-requests/x/approve", nil)
		c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
		c.Set("employee_id", uuid.New().String())

		h.Approve(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "INVALID_STATE", env.Error.Code)
	})
}

func TestRequestHandler_Reject(t *testing.T) {
	t.Run("success binds the rejection reason", func(t *testing.T) {
		requestID := uuid.New().String()
		svc := &fakeRequestService{
			rejectFn: func(ctx context.Context, actorID, id, rejectionReason string) (leaverequest.Response, error) {
				assert.Equal(t, "headcount frozen", rejectionReason)
				return leaverequest.Response{ID: id, Status: leaverequest.StatusRejected}, nil
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave-requests/"+requestID+"/reject", strings.NewReader(`{"rejection_reason":"headcount frozen"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: requestID}}
		c.Set("employee_id", uuid.New().String())

		h.Reject(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing reason fails binding", func(t *testing.T) {
		h := leaverequest.NewHandler(&fakeRequestService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave-requests/x/reject", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Reject(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})
}

func TestRequestHandler_Cancel(t *testing.T) {
	t.Run("falls back to user_id_validated for the actor", func(t *testing.T) {
		actorID := uuid.New().String()
		requestID := uuid.New().String()
		svc := &fakeRequestService{
			cancelFn: func(ctx context.Context, aid, id, reason string) (leaverequest.Response, error) {
				assert.Equal(t, actorID, aid)
				assert.Equal(t, "booked the wrong week", reason)
				return leaverequest.Response{ID: id, Status: leaverequest.StatusCancelled, IsActive: false, CancellationReason: &reason}, nil
			},
		}
		h := leaverequest.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave-requests/"+requestID+"/cancel", strings.NewReader(`{"cancellation_reason":"booked the wrong week"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "id", Value: requestID}}
		c.Set("user_id_validated", actorID)

		h.Cancel(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		var got leaverequest.Response
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, leaverequest.StatusCancelled, got.Status)
		assert.False(t, got.IsActive)
		assert.NotNil(t, got.CancellationReason)
		assert.Equal(t, "booked the wrong week", *got.CancellationReason)
	})

	t.Run("missing reason fails binding", func(t *testing.T) {
		h := leaverequest.NewHandler(&fakeRequestService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/leave-requests/x/cancel", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Cancel(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})
}
