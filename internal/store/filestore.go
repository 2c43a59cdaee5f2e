package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/tree"
)

// documentVersion is the current schema version of the persisted file.
// Version 1 documents carry a flat "todos" array and are migrated on load.
const documentVersion = 2

// document is the single persisted JSON file: all plans with their nested
// forests, plus a content checksum for external-edit detection.
type document struct {
	Version   int          `json:"version"`
	Checksum  string       `json:"checksum,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
	Plans     []*plan.Plan `json:"plans"`

	// Todos is the legacy flat-schema task list. Its presence marks a
	// version 1 document; it is never written back.
	Todos []legacyTodo `json:"todos,omitempty"`
}

// legacyTodo is the flat task record of the version 1 schema. Field names
// follow the old camelCase wire format.
type legacyTodo struct {
	ID                 string      `json:"id"`
	PlanID             string      `json:"planId"`
	ParentID           string      `json:"parentId,omitempty"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	AcceptanceCriteria string      `json:"acceptanceCriteria,omitempty"`
	Status             plan.Status `json:"status"`
	Tags               []string    `json:"tags,omitempty"`
	Groups             []string    `json:"groups,omitempty"`
	EstimateHours      float64     `json:"estimateHours"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
	CompletedAt        *time.Time  `json:"completedAt,omitempty"`
}

func (lt legacyTodo) toTask() *plan.Task {
	return &plan.Task{
		ID:                 lt.ID,
		PlanID:             lt.PlanID,
		ParentID:           lt.ParentID,
		Title:              lt.Title,
		Description:        lt.Description,
		AcceptanceCriteria: lt.AcceptanceCriteria,
		Status:             lt.Status,
		Tags:               lt.Tags,
		Groups:             lt.Groups,
		EstimateHours:      lt.EstimateHours,
		CreatedAt:          lt.CreatedAt,
		UpdatedAt:          lt.UpdatedAt,
		CompletedAt:        lt.CompletedAt,
	}
}

// FileStore persists the whole forest in one JSON document. Every operation
// is a full load-mutate-save cycle guarded by a single mutex: the document
// is the unit of consistency, so callers serialize rather than race.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *log.Logger
	now    func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store rooted at path. The file and its
// directory are created lazily on first use.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &FileStore{
		path:   path,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// load reads the document, creating an empty one when the file does not
// exist and migrating version 1 documents in place.
func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		doc := &document{Version: documentVersion, UpdatedAt: s.now()}
		if saveErr := s.save(doc); saveErr != nil {
			return nil, saveErr
		}
		return doc, nil
	}
	if err != nil {
		return nil, errors.NewStoreLoadError(err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewStoreLoadError(err)
	}

	if len(doc.Todos) > 0 {
		migrated, err := s.migrate(&doc)
		if err != nil {
			return nil, err
		}
		return migrated, nil
	}

	s.verifyChecksum(&doc)

	// Children may be out of order if the file was edited externally.
	for _, p := range doc.Plans {
		tree.SortByCreatedAt(p.Tasks)
	}

	return &doc, nil
}

// loadForRead degrades to an empty document when the file is unreadable,
// keeping read operations available. The failure is logged at error level;
// mutations go through load and fail hard instead, so a corrupted document
// is never silently overwritten.
func (s *FileStore) loadForRead() *document {
	doc, err := s.load()
	if err != nil {
		s.logger.WithError(err).Error("store unreadable, degrading reads to empty store", "path", s.path)
		return &document{Version: documentVersion}
	}
	return doc
}

// migrate converts a legacy flat-schema document to the nested schema and
// persists the result immediately.
func (s *FileStore) migrate(doc *document) (*document, error) {
	s.logger.Info("migrating legacy flat-schema store", "path", s.path, "todos", len(doc.Todos))

	byPlan := make(map[string][]*plan.Task)
	var planOrder []string
	for _, todo := range doc.Todos {
		if _, seen := byPlan[todo.PlanID]; !seen {
			planOrder = append(planOrder, todo.PlanID)
		}
		byPlan[todo.PlanID] = append(byPlan[todo.PlanID], todo.toTask())
	}

	known := make(map[string]*plan.Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		known[p.ID] = p
	}

	for _, planID := range planOrder {
		forest := tree.BuildHierarchy(byPlan[planID], s.logger)
		owner, ok := known[planID]
		if !ok {
			// Tasks whose plan record is gone are kept, not dropped:
			// a synthesized plan makes the loss visible and recoverable.
			s.logger.Warn("legacy tasks reference unknown plan, synthesizing container",
				"plan_id", planID, "tasks", len(forest))
			owner = &plan.Plan{
				ID:        planID,
				Name:      fmt.Sprintf("recovered-%s", planID),
				CreatedAt: s.now(),
				UpdatedAt: s.now(),
			}
			doc.Plans = append(doc.Plans, owner)
		}
		owner.Tasks = forest
	}

	doc.Todos = nil
	doc.Version = documentVersion

	if err := s.save(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreMigration, "failed to persist migrated store", err)
	}

	s.logger.Info("store migration complete", "plans", len(doc.Plans))
	return doc, nil
}

func (s *FileStore) verifyChecksum(doc *document) {
	if doc.Checksum == "" {
		return
	}
	computed, err := checksumPlans(doc.Plans)
	if err != nil {
		return
	}
	if computed != doc.Checksum {
		s.logger.Warn("store checksum mismatch, document may have been edited externally",
			"path", s.path, "expected", doc.Checksum, "computed", computed)
	}
}

// checksumPlans hashes the serialized plan forest with blake3.
func checksumPlans(plans []*plan.Plan) (string, error) {
	data, err := json.Marshal(plans)
	if err != nil {
		return "", err
	}
	hasher := blake3.New()
	if _, err := hasher.Write(data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// save writes the document atomically: serialize to a temp file in the
// target directory, then rename over the destination so a crash can never
// leave a truncated store behind.
func (s *FileStore) save(doc *document) error {
	doc.Version = documentVersion
	doc.UpdatedAt = s.now()

	checksum, err := checksumPlans(doc.Plans)
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	doc.Checksum = checksum

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.NewStoreSaveError(err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewStoreSaveError(err)
	}

	tmp, err := os.CreateTemp(dir, ".taskplan-*.json")
	if err != nil {
		return errors.NewStoreSaveError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewStoreSaveError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewStoreSaveError(err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewStoreSaveError(err)
	}

	return nil
}

// ListPlans implements Store.
func (s *FileStore) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForRead()
	plans := make([]*plan.Plan, 0, len(doc.Plans))
	for _, p := range doc.Plans {
		plans = append(plans, p.Clone())
	}
	return plans, nil
}

// GetPlan implements Store.
func (s *FileStore) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForRead()
	if p := findPlan(doc, planID); p != nil {
		return p.Clone(), nil
	}
	return nil, errors.NewPlanNotFoundError(planID)
}

// CreatePlan implements Store.
func (s *FileStore) CreatePlan(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if findPlan(doc, p.ID) != nil {
		return errors.NewPlanDuplicateError(p.ID)
	}

	doc.Plans = append(doc.Plans, p.Clone())
	return s.save(doc)
}

// UpsertPlan implements Store.
func (s *FileStore) UpsertPlan(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range doc.Plans {
		if existing.ID == p.ID {
			doc.Plans[i] = p.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Plans = append(doc.Plans, p.Clone())
	}

	return s.save(doc)
}

// AddTask implements Store.
func (s *FileStore) AddTask(ctx context.Context, t *plan.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	owner := findPlan(doc, t.PlanID)
	if owner == nil {
		return errors.NewPlanNotFoundError(t.PlanID)
	}

	// Task ids are unique across the whole store, not just the plan.
	for _, p := range doc.Plans {
		if tree.FindByID(p.Tasks, t.ID) != nil {
			return errors.New(errors.ErrCodeTaskInvalid,
				fmt.Sprintf("a task with id %s already exists", t.ID))
		}
	}

	task := t.Clone()
	task.Children = nil

	if task.ParentID != "" {
		parent := tree.FindByID(owner.Tasks, task.ParentID)
		if parent == nil {
			return errors.NewParentNotFoundError(task.ParentID, t.PlanID)
		}
		parent.Children = append(parent.Children, task)
		tree.SortByCreatedAt(parent.Children)
	} else {
		owner.Tasks = append(owner.Tasks, task)
		tree.SortByCreatedAt(owner.Tasks)
	}

	owner.Touch(s.now())
	return s.save(doc)
}

// FindTask implements Store.
func (s *FileStore) FindTask(ctx context.Context, taskID string) (*plan.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadForRead()
	for _, p := range doc.Plans {
		if task := tree.FindByID(p.Tasks, taskID); task != nil {
			return task.Clone(), nil
		}
	}
	return nil, errors.NewTaskNotFoundError(taskID)
}

// UpdateTaskStatus implements Store.
func (s *FileStore) UpdateTaskStatus(ctx context.Context, taskID string, status plan.Status) (*plan.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	var owner *plan.Plan
	var task *plan.Task
	for _, p := range doc.Plans {
		if found := tree.FindByID(p.Tasks, taskID); found != nil {
			owner, task = p, found
			break
		}
	}
	if task == nil {
		return nil, errors.NewTaskNotFoundError(taskID)
	}

	now := s.now()
	task.SetStatus(status, now)

	if status == plan.StatusCompleted {
		cascaded := tree.CascadeCompletion(owner.Tasks, taskID, now)
		if len(cascaded) > 0 {
			s.logger.Info("cascading completion promoted parents",
				"task_id", taskID, "completed_parents", cascaded)
		}
	}

	owner.Touch(now)
	if err := s.save(doc); err != nil {
		return nil, err
	}

	return task.Clone(), nil
}

func findPlan(doc *document, planID string) *plan.Plan {
	for _, p := range doc.Plans {
		if p.ID == planID {
			return p
		}
	}
	return nil
}
