package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chatgate/internal/form"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// FormServiceInterface はフォームハンドラーが必要とするサービスインターフェース。
type FormServiceInterface interface {
	Submit(ctx context.Context, user *model.CurrentUser, input form.SubmitInput) (*model.Submission, error)
	List(ctx context.Context) ([]model.Submission, error)
}

// FormHandler は問い合わせフォーム関連のHTTPハンドラー。
type FormHandler struct {
	service FormServiceInterface
}

// NewFormHandler はFormHandlerを生成する。
func NewFormHandler(service FormServiceInterface) *FormHandler {
	return &FormHandler{service: service}
}

// submitRequest は問い合わせフォームのボディ。
type submitRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	ServiceType string `json:"service_type"`
}

// submitResponse はフォーム受付のレスポンス。
type submitResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// Submit は問い合わせフォームを受け付ける。
// 任意認証ゲートの後段にあり、匿名・認証済みどちらの送信も受け付ける。
// POST /submit-form
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("body"))
		return
	}

	// 匿名の場合はnilのまま渡す
	user, _ := middleware.CurrentUserFromContext(r.Context())

	submission, err := h.service.Submit(r.Context(), user, form.SubmitInput{
		Name:        req.Name,
		Email:       req.Email,
		Message:     req.Message,
		Company:     req.Company,
		Phone:       req.Phone,
		ServiceType: req.ServiceType,
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeValidation {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			return
		}
		slog.Error("form submission failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Message: "form submitted successfully",
		ID:      submission.ID,
		Status:  "success",
	})
}

// submissionsResponse は問い合わせ一覧のレスポンス。
type submissionsResponse struct {
	Submissions []model.Submission `json:"submissions"`
	Total       int                `json:"total"`
}

// List は保存済みの問い合わせをすべて返す。
// GET /get-submissions
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to load submissions", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if submissions == nil {
		submissions = []model.Submission{}
	}

	writeJSON(w, http.StatusOK, submissionsResponse{
		Submissions: submissions,
		Total:       len(submissions),
	})
}
