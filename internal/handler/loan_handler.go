package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/segyhp/loanlink/internal/auth"
	"github.com/segyhp/loanlink/internal/domain"
	"github.com/segyhp/loanlink/internal/service"
	customError "github.com/segyhp/loanlink/pkg/errors"
	"github.com/segyhp/loanlink/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	maxBodyBytes = 1 << 20
	// multipartOverheadBytes covers boundaries and part headers around an upload.
	multipartOverheadBytes = 64 << 10
)

// LoanService is the subset of the loan service used over HTTP.
type LoanService interface {
	CreateLoan(ctx context.Context, actor string, request *domain.CreateLoanRequest) (*service.MutationResult, error)
	UpdateLoan(ctx context.Context, actor string, loanID int64, request *domain.UpdateLoanRequest) (*service.MutationResult, error)
	AcceptLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error)
	RejectLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error)
	CancelLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error)
	DeleteLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error)
	RecordPayment(ctx context.Context, actor string, loanID int64, request *domain.RecordPaymentRequest) (*service.PaymentResult, error)
	ListLoans(ctx context.Context, actor string) ([]domain.LoanView, error)
	GetLoan(ctx context.Context, actor string, loanID int64) (*domain.LoanView, error)
}

// ProofStore keeps uploaded payment proofs.
type ProofStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

type LoanHandler struct {
	service        LoanService
	proofs         ProofStore
	maxUploadBytes int64
	validator      *validator.Validate
	log            *logrus.Logger
}

func NewLoanHandler(service LoanService, proofs ProofStore, maxUploadBytes int64, log *logrus.Logger) *LoanHandler {
	return &LoanHandler{
		service:        service,
		proofs:         proofs,
		maxUploadBytes: maxUploadBytes,
		validator:      newValidator(),
		log:            log,
	}
}

// Register mounts the loan routes on an authenticated router.
func (h *LoanHandler) Register(api *mux.Router) {
	api.HandleFunc("/loans", h.ListLoans).Methods("GET")
	api.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", h.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}", h.UpdateLoan).Methods("PUT")
	api.HandleFunc("/loans/{loanId}", h.DeleteLoan).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/accept", h.AcceptLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reject", h.RejectLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/cancel", h.CancelLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/pay", h.RecordPayment).Methods("POST")
	api.HandleFunc("/uploads", h.UploadProof).Methods("POST")
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context(), auth.PartyFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, loans)
}

func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.CreateLoan(r.Context(), auth.PartyFromContext(r.Context()), &request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.WithWarning(w, http.StatusCreated, result, result.Warning)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), auth.PartyFromContext(r.Context()), loanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.UpdateLoanRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.UpdateLoan(r.Context(), auth.PartyFromContext(r.Context()), loanID, &request)
	h.writeMutation(w, r, result, err)
}

func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.DeleteLoan)
}

func (h *LoanHandler) AcceptLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.AcceptLoan)
}

func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.RejectLoan)
}

func (h *LoanHandler) CancelLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelLoan)
}

func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.RecordPaymentRequest
	if !h.decode(w, r, &request) {
		return
	}

	result, err := h.service.RecordPayment(r.Context(), auth.PartyFromContext(r.Context()), loanID, &request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.WithWarning(w, http.StatusOK, result, result.Warning)
}

// UploadProof stores a multipart "file" field and returns its reference.
func (h *LoanHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverheadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	ref, err := h.proofs.Save(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, map[string]string{"reference": ref})
}

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int64) (*service.MutationResult, error)) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}
	result, err := op(r.Context(), auth.PartyFromContext(r.Context()), loanID)
	h.writeMutation(w, r, result, err)
}

func (h *LoanHandler) writeMutation(w http.ResponseWriter, r *http.Request, result *service.MutationResult, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.WithWarning(w, http.StatusOK, result, result.Warning)
}

func (h *LoanHandler) loanID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["loanId"], 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "loanId must be a positive integer")
		return 0, false
	}
	return id, true
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.Error(w, http.StatusBadRequest, describe(err), customError.ErrCodeInvalidRequest)
		return false
	}
	return true
}

func (h *LoanHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := customError.KindOf(err)

	var businessErr *customError.BusinessError
	if kind == customError.KindInternal || !errors.As(err, &businessErr) {
		h.log.WithError(err).WithFields(logrus.Fields{
			"request_id": response.RequestID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
		response.InternalServerError(w, "Internal server error")
		return
	}

	response.Error(w, StatusFor(kind), businessErr.Message, businessErr.Code)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind customError.Kind) int {
	switch kind {
	case customError.KindValidation:
		return http.StatusBadRequest
	case customError.KindUnauthenticated:
		return http.StatusUnauthorized
	case customError.KindAuthorization:
		return http.StatusForbidden
	case customError.KindNotFound:
		return http.StatusNotFound
	case customError.KindState:
		return http.StatusConflict
	case customError.KindContention:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
