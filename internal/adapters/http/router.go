// Package httpadapter is the HTTP polling surface: uploads, job submission,
// job/batch polling, plan reads, export download and the admin configuration
// endpoints. Handlers validate and translate; all behavior lives in the
// use-case layer.
package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
	"github.com/oyvindhag/cleansync/internal/core/usecase"
	"github.com/oyvindhag/cleansync/internal/infrastructure/storage/localfs"
	"github.com/oyvindhag/cleansync/internal/observability/metrics"
)

const serviceName = "cleansync-api"

type Router struct {
	uploadUC  ports.FileUploader
	submitUC  ports.JobSubmitter
	jobsUC    ports.JobReader
	plansUC   ports.PlanReader
	adminUC   *usecase.AdminUseCase
	storage   ports.ObjectStorage
	serverMet *metrics.HTTPServerMetrics

	maxUploadBytes   int64
	rateLimitRPS     int
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

type RouterOptions struct {
	MaxUploadBytes   int64
	RateLimitRPS     int
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

func NewRouter(
	uploadUC ports.FileUploader,
	submitUC ports.JobSubmitter,
	jobsUC ports.JobReader,
	plansUC ports.PlanReader,
	adminUC *usecase.AdminUseCase,
	storage ports.ObjectStorage,
	serverMet *metrics.HTTPServerMetrics,
	options RouterOptions,
) *Router {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 20 << 20
	}
	return &Router{
		uploadUC:         uploadUC,
		submitUC:         submitUC,
		jobsUC:           jobsUC,
		plansUC:          plansUC,
		adminUC:          adminUC,
		storage:          storage,
		serverMet:        serverMet,
		maxUploadBytes:   options.MaxUploadBytes,
		rateLimitRPS:     options.RateLimitRPS,
		rateLimitBurst:   options.RateLimitBurst,
		maxInFlight:      options.MaxInFlight,
		backpressureWait: options.BackpressureWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/uploads/floorplans", rt.uploadFloorPlans)
	mux.HandleFunc("/v1/uploads/template", rt.uploadTemplate)
	mux.HandleFunc("/v1/uploads/external-plan", rt.uploadExternalPlan)
	mux.HandleFunc("/v1/plans/generate", rt.submitGenerate)
	mux.HandleFunc("/v1/plans/convert", rt.submitConvert)
	mux.HandleFunc("/v1/batch/run", rt.submitBatch)
	mux.HandleFunc("/v1/jobs/", rt.getJob)
	mux.HandleFunc("/v1/batch/", rt.getBatch)
	mux.HandleFunc("/v1/plans", rt.listPlans)
	mux.HandleFunc("/v1/plans/", rt.getPlan)
	mux.HandleFunc("/v1/download/", rt.download)
	mux.HandleFunc("/v1/admin/api-keys", rt.apiKeys)
	mux.HandleFunc("/v1/admin/api-keys/", rt.apiKeyByName)
	mux.HandleFunc("/v1/admin/system-prompt", rt.systemPrompt)
	mux.HandleFunc("/v1/admin/engine-config", rt.engineConfig)
	if rt.serverMet != nil {
		mux.Handle("/metrics", rt.serverMet.Handler())
	}

	var handler http.Handler = mux
	handler = trafficControlMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.maxInFlight, rt.backpressureWait)
	if rt.serverMet != nil {
		handler = rt.serverMet.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadFloorPlans(w http.ResponseWriter, r *http.Request) {
	rt.uploadMany(w, r, localfs.CategoryUploads)
}

func (rt *Router) uploadExternalPlan(w http.ResponseWriter, r *http.Request) {
	rt.uploadMany(w, r, localfs.CategoryExternal)
}

func (rt *Router) uploadMany(w http.ResponseWriter, r *http.Request, category string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(rt.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart request"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	fileIDs := make([]string, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable multipart file"})
			return
		}
		fileID, err := rt.uploadUC.Upload(r.Context(), category, header.Filename, file)
		file.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		if rt.serverMet != nil {
			rt.serverMet.RecordUpload(serviceName, category, header.Size)
		}
		fileIDs = append(fileIDs, fileID)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"file_ids": fileIDs})
}

func (rt *Router) uploadTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	templateID, err := rt.uploadUC.Upload(r.Context(), localfs.CategoryTemplates, fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.serverMet != nil {
		rt.serverMet.RecordUpload(serviceName, localfs.CategoryTemplates, fileHeader.Size)
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"template_id": templateID,
		"filename":    fileHeader.Filename,
	})
}

type generateRequest struct {
	FileIDs    []string                `json:"file_ids"`
	TemplateID string                  `json:"template_id"`
	Options    domain.FloorPlanOptions `json:"options"`
}

func (rt *Router) submitGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.submitUC.SubmitPlanJob(r.Context(), domain.JobRequest{
		FileIDs:    req.FileIDs,
		TemplateID: req.TemplateID,
		Options:    req.Options,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSubmit(job)
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (rt *Router) submitConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		FileID string `json:"file_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.submitUC.SubmitConvertJob(r.Context(), req.FileID)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSubmit(job)
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.submitUC.SubmitBatchJob(r.Context(), domain.JobRequest{
		FileIDs:    req.FileIDs,
		TemplateID: req.TemplateID,
		Options:    req.Options,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordSubmit(job)
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (rt *Router) recordSubmit(job *domain.Job) {
	if rt.serverMet != nil {
		rt.serverMet.RecordJobSubmitted(serviceName, string(job.Kind))
	}
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := rt.jobsUC.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/batch/")
	if id == "" || id == "run" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "batch job id is required"})
		return
	}

	job, err := rt.jobsUC.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job.Kind != domain.KindBatch {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not a batch job"})
		return
	}

	succeeded, failed := job.BatchCounts()
	writeJSON(w, http.StatusOK, map[string]any{
		"job":       jobResponse(job),
		"items":     job.Items,
		"succeeded": succeeded,
		"failed":    failed,
	})
}

func (rt *Router) listPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be within [1, 500]"})
			return
		}
		limit = parsed
	}

	summaries, err := rt.plansUC.ListPlans(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": summaries})
}

func (rt *Router) getPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plan id is required"})
		return
	}

	plan, err := rt.plansUC.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (rt *Router) download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	exportID := strings.TrimPrefix(r.URL.Path, "/v1/download/")
	if exportID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "export id is required"})
		return
	}

	reader, err := rt.storage.Open(r.Context(), localfs.Key(localfs.CategoryExports, exportID))
	if err != nil {
		writeError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportID+`"`)
	_, _ = io.Copy(w, reader)
}

func (rt *Router) apiKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		keys, err := rt.adminUC.ListAPIKeys(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"api_keys": keys})
	case http.MethodPost:
		var req struct {
			Name  string `json:"name"`
			Label string `json:"label"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		key, err := rt.adminUC.SetAPIKey(r.Context(), req.Name, req.Label, req.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, key)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) apiKeyByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/v1/admin/api-keys/")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key name is required"})
		return
	}
	if err := rt.adminUC.DeleteAPIKey(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (rt *Router) systemPrompt(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		prompt, overridden, err := rt.adminUC.GetSystemPrompt(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prompt": prompt, "overridden": overridden})
	case http.MethodPut:
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if err := rt.adminUC.SetSystemPrompt(r.Context(), req.Prompt); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case http.MethodDelete:
		if err := rt.adminUC.ResetSystemPrompt(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) engineConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		engine, err := rt.adminUC.GetEngineSettings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, engine)
	case http.MethodPut:
		var engine domain.EngineSettings
		if err := json.NewDecoder(r.Body).Decode(&engine); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if err := rt.adminUC.SetEngineSettings(r.Context(), engine); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// jobResponse is the polling shape. Batch items are exposed on the batch
// endpoint, not here, so plan-job polling stays small.
func jobResponse(job *domain.Job) map[string]any {
	response := map[string]any{
		"id":              job.ID,
		"kind":            job.Kind,
		"status":          job.Status,
		"total_files":     job.TotalFiles,
		"processed_files": job.ProcessedFiles,
		"created_at":      job.CreatedAt,
		"updated_at":      job.UpdatedAt,
	}
	if job.Message != "" {
		response["message"] = job.Message
	}
	if job.Detail != nil {
		response["detail"] = job.Detail
	}
	if job.PlanID != "" {
		response["plan_id"] = job.PlanID
	}
	return response
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internals never leak raw error chains to clients.
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
