package leavetype_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"leaveledger/internal/leavetype"
	mock_leavetype "leaveledger/internal/leavetype/mock"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type apiEnvelope struct {
	Ok   bool            `json:"ok"`
	Data json.RawMessage `json:"data"`
}

func TestLeaveTypeHandler_List(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := mock_leavetype.NewMockRepository(ctrl)
		mockRepo.EXPECT().
			FindAllActive(gomock.Any()).
			Return([]leavetype.LeaveType{
				{
					ID:       uuid.New(),
					Code:     "AL",
					Name:     "Annual Leave",
					Category: "annual",
					IsActive: true,
				},
				{
					ID:       uuid.New(),
					Code:     "SL",
					Name:     "Sick Leave",
					Category: "sick",
					IsActive: true,
				},
			}, nil)

		h := leavetype.NewHandler(mockRepo)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave-types", nil)

		h.List(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var env apiEnvelope
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(t, env.Ok)
		var got []leavetype.Response
		assert.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Len(t, got, 2)
		assert.Equal(t, "annual", got[0].Category)
	})

	t.Run("repository error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockRepo := mock_leavetype.NewMockRepository(ctrl)
		mockRepo.EXPECT().
			FindAllActive(gomock.Any()).
			Return(nil, errors.New("db down"))

		h := leavetype.NewHandler(mockRepo)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/leave-types", nil)

		h.List(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
