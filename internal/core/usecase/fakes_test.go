package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/oyvindhag/cleansync/internal/core/domain"
	"github.com/oyvindhag/cleansync/internal/core/ports"
)

type jobRepoFake struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	createErr   error
	progressErr error
}

func repoCtxErr(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.ErrStorage, op, err)
	}
	return nil
}

func newJobRepoFake() *jobRepoFake {
	return &jobRepoFake{jobs: map[string]*domain.Job{}}
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get job", errors.New(id))
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobRepoFake) MarkRunning(ctx context.Context, id string) error {
	if err := repoCtxErr(ctx, "mark running"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return domain.WrapError(domain.ErrNotFound, "mark running", errors.New(id))
	}
	job.Status = domain.JobRunning
	return nil
}

func (f *jobRepoFake) MarkSuccess(ctx context.Context, id, planID string, processedFiles int) error {
	if err := repoCtxErr(ctx, "mark success"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return domain.WrapError(domain.ErrNotFound, "mark success", errors.New(id))
	}
	job.Status = domain.JobSuccess
	job.PlanID = planID
	job.ProcessedFiles = processedFiles
	return nil
}

func (f *jobRepoFake) MarkFailed(ctx context.Context, id string, message string, detail domain.FailureDetail) error {
	if err := repoCtxErr(ctx, "mark failed"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return domain.WrapError(domain.ErrNotFound, "mark failed", errors.New(id))
	}
	job.Status = domain.JobFailed
	job.Message = message
	job.Detail = &detail
	return nil
}

func (f *jobRepoFake) UpdateBatchProgress(ctx context.Context, id string, processedFiles int, items []domain.BatchItem) error {
	if err := repoCtxErr(ctx, "update progress"); err != nil {
		return err
	}
	if f.progressErr != nil {
		return f.progressErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status.Terminal() {
		return domain.WrapError(domain.ErrNotFound, "update progress", errors.New(id))
	}
	if processedFiles > job.ProcessedFiles {
		job.ProcessedFiles = processedFiles
	}
	job.Items = items
	return nil
}

type planRepoFake struct {
	mu    sync.Mutex
	plans map[string]*domain.StoredPlan

	saveErr error
}

func newPlanRepoFake() *planRepoFake {
	return &planRepoFake{plans: map[string]*domain.StoredPlan{}}
}

func (f *planRepoFake) Save(_ context.Context, plan *domain.StoredPlan) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyPlan := *plan
	f.plans[plan.ID] = &copyPlan
	return nil
}

func (f *planRepoFake) GetByID(_ context.Context, id string) (*domain.StoredPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan, ok := f.plans[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get plan", errors.New(id))
	}
	copyPlan := *plan
	return &copyPlan, nil
}

func (f *planRepoFake) ListRecent(context.Context, int) ([]domain.PlanSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summaries := make([]domain.PlanSummary, 0, len(f.plans))
	for _, plan := range f.plans {
		summaries = append(summaries, domain.PlanSummary{ID: plan.ID, Source: plan.Source})
	}
	return summaries, nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte

	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open file", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	mu         sync.Mutex
	dispatches []domain.JobDispatch
	err        error
}

func (f *queueFake) PublishJobDispatch(_ context.Context, dispatch domain.JobDispatch) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches = append(f.dispatches, dispatch)
	return nil
}

func (f *queueFake) SubscribeJobDispatch(context.Context, func(context.Context, domain.JobDispatch) error) error {
	return errors.New("not implemented")
}

// engineFake scripts per-capability responses. Errors win over payloads.
type engineFake struct {
	mu sync.Mutex

	analyzeRaw  map[string][]byte
	templateRaw []byte
	generateRaw []byte
	convertRaw  []byte

	analyzeErr  error
	templateErr error
	generateErr error
	convertErr  error

	// blockAnalyze parks AnalyzeFloorPlan until the caller's context expires.
	blockAnalyze bool

	analyzeCalls  int
	templateCalls int
	generateCalls int
	lastRooms     []domain.Room
	lastSchema    domain.TemplateSchema
	lastCategory  string
	lastText      string
}

func (f *engineFake) AnalyzeFloorPlan(ctx context.Context, _ domain.ConfigSnapshot, doc ports.DocumentData, _ domain.FloorPlanOptions) ([]byte, error) {
	if f.blockAnalyze {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	if raw, ok := f.analyzeRaw[doc.Filename]; ok {
		return raw, nil
	}
	return []byte(`{"rooms":[{"id":"r1","name":"Kontor"}]}`), nil
}

func (f *engineFake) AnalyzeTemplate(context.Context, domain.ConfigSnapshot, ports.DocumentData) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateCalls++
	if f.templateErr != nil {
		return nil, f.templateErr
	}
	if f.templateRaw != nil {
		return f.templateRaw, nil
	}
	return []byte(`{"name":"Malbasert"}`), nil
}

func (f *engineFake) GeneratePlan(_ context.Context, _ domain.ConfigSnapshot, rooms []domain.Room, schema domain.TemplateSchema, planCategory string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastRooms = rooms
	f.lastSchema = schema
	f.lastCategory = planCategory
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.generateRaw != nil {
		return f.generateRaw, nil
	}
	return []byte(`{"entries":[{"room_name":"Kontor","description":"Daglig renhold","frequency":{"MAN":true}}]}`), nil
}

func (f *engineFake) ConvertPlan(_ context.Context, _ domain.ConfigSnapshot, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	if f.convertErr != nil {
		return nil, f.convertErr
	}
	if f.convertRaw != nil {
		return f.convertRaw, nil
	}
	return []byte(`{"entries":[{"room_name":"Gang","description":"Moppevask","frequency":{"FRE":true}}]}`), nil
}

type settingsFake struct {
	mu       sync.Mutex
	keys     map[string]domain.APIKey
	settings map[string]domain.Setting
}

func newSettingsFake() *settingsFake {
	return &settingsFake{
		keys:     map[string]domain.APIKey{},
		settings: map[string]domain.Setting{},
	}
}

func (f *settingsFake) GetAPIKey(_ context.Context, name string) (*domain.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get api key", errors.New(name))
	}
	return &key, nil
}

func (f *settingsFake) ListAPIKeys(context.Context) ([]domain.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]domain.APIKey, 0, len(f.keys))
	for _, key := range f.keys {
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *settingsFake) SetAPIKey(_ context.Context, name, label, value string) (*domain.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.APIKey{Name: name, Label: label, Value: value}
	f.keys[name] = key
	return &key, nil
}

func (f *settingsFake) DeleteAPIKey(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[name]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete api key", errors.New(name))
	}
	delete(f.keys, name)
	return nil
}

func (f *settingsFake) GetSetting(_ context.Context, name string) (*domain.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setting, ok := f.settings[name]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get setting", errors.New(name))
	}
	return &setting, nil
}

func (f *settingsFake) SetSetting(_ context.Context, name, value string) (*domain.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setting := domain.Setting{Name: name, Value: value}
	f.settings[name] = setting
	return &setting, nil
}

func (f *settingsFake) DeleteSetting(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.settings[name]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete setting", errors.New(name))
	}
	delete(f.settings, name)
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type exporterFake struct {
	err error
}

func (f *exporterFake) Render(domain.Plan) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("xlsx-bytes"), nil
}

func testConfigService() *ConfigService {
	return NewConfigService(newSettingsFake(), "env-key")
}
