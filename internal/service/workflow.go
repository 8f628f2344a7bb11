package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"led-frame-merger/internal/config"
	"led-frame-merger/internal/model"
	"led-frame-merger/internal/storage"
)

const (
	defaultOutputBase = "config"
	outputTimeLayout  = "2006-01-02_15-04-05"
)

// Publisher receives workflow events. ws.Fanout is the production one.
type Publisher interface {
	Publish(evt model.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.Event) {}

// SlotReport is the validation view of a session: overall validity plus the
// concatenation result of every slot.
type SlotReport struct {
	IsValid bool                                     `json:"is_valid"`
	Slots   model.SlotMap[model.ConcatenationResult] `json:"slots"`
}

type SaveResult struct {
	Config     model.Configuration `json:"config"`
	OutputName string              `json:"output_name"`
	OutputPath string              `json:"output_path,omitempty"`
}

// WorkflowService drives merge sessions through their steps and persists them
// in the state file.
type WorkflowService struct {
	cfg    config.Config
	store  *storage.Store
	repo   *storage.FileRepository
	events Publisher
	logger *zap.Logger
	now    func() time.Time

	// serializes read-modify-write of sessions
	mu sync.Mutex
}

func NewWorkflowService(cfg config.Config, store *storage.Store, repo *storage.FileRepository, events Publisher, logger *zap.Logger) *WorkflowService {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if repo == nil {
		repo = storage.NewFileRepository()
	}
	return &WorkflowService{
		cfg:    cfg,
		store:  store,
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

func (s *WorkflowService) Geometry() model.Geometry {
	if s.cfg.LEDRows <= 0 || s.cfg.LEDCols <= 0 {
		return model.DefaultGeometry()
	}
	return model.Geometry{Rows: s.cfg.LEDRows, Cols: s.cfg.LEDCols}
}

func (s *WorkflowService) CreateSession(baseName string, base model.Configuration) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	sess := model.Session{
		ID:        uuid.NewString(),
		Step:      model.StepConfigureMappings,
		BaseName:  strings.TrimSpace(baseName),
		Base:      base.Clone(),
		Sources:   []model.SourceFile{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, slot := range model.AllSlots {
		sess.Selections.Set(slot, []model.SelectionRef{{SourceID: model.BaseSourceID, SourceSlot: slot.PageIndex()}})
	}
	if err := s.store.PutSession(sess); err != nil {
		s.logger.Error("persist session", zap.String("session_id", sess.ID), zap.Error(err))
		return model.Session{}, err
	}
	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("base_name", sess.BaseName),
		zap.Int("pages", len(sess.Base.Pages)),
	)
	s.publish(model.EventSessionCreated, sess.ID, map[string]any{"base_name": sess.BaseName})
	return sess, nil
}

func (s *WorkflowService) Get(sessionID string) (model.Session, error) {
	sess := s.store.GetSession(sessionID)
	if sess == nil {
		return model.Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

func (s *WorkflowService) List() []model.Session {
	return s.store.ListSessions()
}

func (s *WorkflowService) AddSource(sessionID, name string, cfg model.Configuration) (model.SourceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.editable(sessionID)
	if err != nil {
		return model.SourceFile{}, err
	}
	src := model.SourceFile{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Config:  cfg.Clone(),
		AddedAt: s.now().UnixMilli(),
	}
	sess.Sources = append(sess.Sources, src)
	if err := s.put(&sess); err != nil {
		return model.SourceFile{}, err
	}
	s.logger.Info("source added",
		zap.String("session_id", sessionID),
		zap.String("source_id", src.ID),
		zap.String("name", src.Name),
	)
	s.publish(model.EventSourceAdded, sessionID, map[string]any{"source_id": src.ID, "name": src.Name})
	return src, nil
}

// RemoveSource drops the source and every selection that points at it.
func (s *WorkflowService) RemoveSource(sessionID, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.editable(sessionID)
	if err != nil {
		return err
	}
	idx := -1
	for i, src := range sess.Sources {
		if src.ID == sourceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	sess.Sources = append(sess.Sources[:idx], sess.Sources[idx+1:]...)

	var kept model.SlotMap[[]model.SelectionRef]
	sess.Selections.Each(func(slot model.Slot, refs []model.SelectionRef) {
		out := make([]model.SelectionRef, 0, len(refs))
		for _, ref := range refs {
			if ref.SourceID != sourceID {
				out = append(out, ref)
			}
		}
		kept.Set(slot, out)
	})
	sess.Selections = kept

	if err := s.put(&sess); err != nil {
		return err
	}
	s.logger.Info("source removed", zap.String("session_id", sessionID), zap.String("source_id", sourceID))
	s.publish(model.EventSourceRemoved, sessionID, map[string]any{"source_id": sourceID})
	return nil
}

// SetSelections replaces the ordered selection list of one slot and returns
// the slot's new concatenation result.
func (s *WorkflowService) SetSelections(sessionID string, slotNum int, refs []model.SelectionRef) (model.ConcatenationResult, error) {
	slot, err := parseSlot(slotNum)
	if err != nil {
		return model.ConcatenationResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.editable(sessionID)
	if err != nil {
		return model.ConcatenationResult{}, err
	}
	selections, err := resolveRefs(sess, refs)
	if err != nil {
		return model.ConcatenationResult{}, err
	}
	stored := make([]model.SelectionRef, len(refs))
	copy(stored, refs)
	sess.Selections.Set(slot, stored)
	if err := s.put(&sess); err != nil {
		return model.ConcatenationResult{}, err
	}

	result := Concatenate(selections)
	s.logger.Debug("slot concatenated",
		zap.String("session_id", sessionID),
		zap.Int("slot", slot.PageIndex()),
		zap.Int("selections", len(refs)),
		zap.Int("total_frames", result.TotalFrames),
		zap.Bool("valid", result.IsValid),
	)
	s.publish(model.EventSlotConcat, sessionID, map[string]any{
		"slot":         slot.PageIndex(),
		"total_frames": result.TotalFrames,
		"is_valid":     result.IsValid,
		"warning":      result.Warning,
	})
	return result, nil
}

// SlotResult recomputes the concatenation result of one slot.
func (s *WorkflowService) SlotResult(sessionID string, slotNum int) (model.ConcatenationResult, error) {
	slot, err := parseSlot(slotNum)
	if err != nil {
		return model.ConcatenationResult{}, err
	}
	sess, err := s.Get(sessionID)
	if err != nil {
		return model.ConcatenationResult{}, err
	}
	refs, _ := sess.Selections.Get(slot)
	selections, err := resolveRefs(sess, refs)
	if err != nil {
		return model.ConcatenationResult{}, err
	}
	return Concatenate(selections), nil
}

func (s *WorkflowService) Validate(sessionID string) (SlotReport, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return SlotReport{}, err
	}
	return validateSession(sess)
}

// Review moves the session to the review step when every slot is valid. On
// failure the session stays where it is and the report says why.
func (s *WorkflowService) Review(sessionID string) (SlotReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.editable(sessionID)
	if err != nil {
		return SlotReport{}, err
	}
	report, err := validateSession(sess)
	if err != nil {
		return SlotReport{}, err
	}
	if !report.IsValid {
		s.logger.Warn("review rejected, invalid slots", zap.String("session_id", sessionID), zap.Strings("warnings", slotWarnings(report.Slots)))
		return report, ErrInvalidSlots
	}
	if err := s.moveTo(&sess, model.StepReview); err != nil {
		return SlotReport{}, err
	}
	return report, nil
}

func (s *WorkflowService) Back(sessionID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if sess.Step != model.StepReview {
		return model.Session{}, fmt.Errorf("%w: back from %s", ErrWrongStep, sess.Step)
	}
	if err := s.moveTo(&sess, model.StepConfigureMappings); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Save merges the session into a new configuration. The file is written to
// the output directory only when output writing is enabled.
func (s *WorkflowService) Save(ctx context.Context, sessionID string) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(sessionID)
	if err != nil {
		return SaveResult{}, err
	}
	if sess.Step != model.StepReview {
		return SaveResult{}, fmt.Errorf("%w: save from %s", ErrWrongStep, sess.Step)
	}
	report, err := validateSession(sess)
	if err != nil {
		return SaveResult{}, err
	}
	if !report.IsValid {
		return SaveResult{}, ErrInvalidSlots
	}
	merged, err := Merge(&sess.Base, report.Slots)
	if err != nil {
		return SaveResult{}, err
	}

	res := SaveResult{
		Config:     merged,
		OutputName: OutputFileName(sess.BaseName, s.now()),
	}
	if s.cfg.WriteOutput {
		res.OutputPath = filepath.Join(s.cfg.OutputDir, res.OutputName)
		if err := s.repo.Save(ctx, merged, res.OutputPath); err != nil {
			s.logger.Error("write merged configuration", zap.String("session_id", sessionID), zap.String("path", res.OutputPath), zap.Error(err))
			return SaveResult{}, err
		}
	}

	sess.OutputName = res.OutputName
	sess.OutputPath = res.OutputPath
	if err := s.moveTo(&sess, model.StepComplete); err != nil {
		return SaveResult{}, err
	}
	s.logger.Info("merge completed",
		zap.String("session_id", sessionID),
		zap.String("output_name", res.OutputName),
		zap.String("output_path", res.OutputPath),
	)
	s.publish(model.EventMergeCompleted, sessionID, map[string]any{
		"output_name": res.OutputName,
		"output_path": res.OutputPath,
	})
	return res, nil
}

// Reset discards the session.
func (s *WorkflowService) Reset(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.store.DeleteSession(sessionID)
	if err != nil {
		s.logger.Error("delete session", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	s.logger.Info("session reset", zap.String("session_id", sessionID))
	s.publish(model.EventSessionReset, sessionID, nil)
	return nil
}

// SlotPreview renders frame n of a slot's concatenated sequence as a PNG.
func (s *WorkflowService) SlotPreview(sessionID string, slotNum, n int) ([]byte, error) {
	frame, err := s.slotFrame(sessionID, slotNum, n)
	if err != nil {
		return nil, err
	}
	return RenderFramePNG(frame, s.Geometry(), s.cfg.PreviewScale)
}

// SlotFramePayload packs frame n of a slot for a physical panel.
func (s *WorkflowService) SlotFramePayload(sessionID string, slotNum, n int, encoding string) ([]byte, error) {
	frame, err := s.slotFrame(sessionID, slotNum, n)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(frame, s.Geometry(), encoding)
}

func (s *WorkflowService) slotFrame(sessionID string, slotNum, n int) (model.Frame, error) {
	result, err := s.SlotResult(sessionID, slotNum)
	if err != nil {
		return model.Frame{}, err
	}
	page, _ := result.Page()
	return PreviewFrame(page, n)
}

// OutputFileName names a merged file after its base: <base>_<timestamp>.json.
func OutputFileName(baseName string, now time.Time) string {
	name := filepath.Base(strings.TrimSpace(baseName))
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".json") {
		name = name[:len(name)-len(ext)]
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = defaultOutputBase
	}
	return fmt.Sprintf("%s_%s.json", name, now.UTC().Format(outputTimeLayout))
}

func (s *WorkflowService) editable(sessionID string) (model.Session, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if sess.Step != model.StepConfigureMappings {
		return model.Session{}, fmt.Errorf("%w: session is in %s", ErrWrongStep, sess.Step)
	}
	return sess, nil
}

func (s *WorkflowService) put(sess *model.Session) error {
	sess.UpdatedAt = s.now().UnixMilli()
	if err := s.store.PutSession(*sess); err != nil {
		s.logger.Error("persist session", zap.String("session_id", sess.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *WorkflowService) moveTo(sess *model.Session, step model.Step) error {
	from := sess.Step
	sess.Step = step
	if err := s.put(sess); err != nil {
		return err
	}
	s.logger.Info("step changed", zap.String("session_id", sess.ID), zap.String("from", string(from)), zap.String("to", string(step)))
	s.publish(model.EventStepChanged, sess.ID, map[string]any{"from": from, "to": step})
	return nil
}

func (s *WorkflowService) publish(typ, sessionID string, payload any) {
	s.events.Publish(model.Event{
		Type:      typ,
		SessionID: sessionID,
		Payload:   payload,
		CreatedAt: s.now().UnixMilli(),
	})
}

func validateSession(sess model.Session) (SlotReport, error) {
	var selections model.SlotMap[[]model.SlotSelection]
	for _, slot := range model.AllSlots {
		refs, _ := sess.Selections.Get(slot)
		resolved, err := resolveRefs(sess, refs)
		if err != nil {
			return SlotReport{}, err
		}
		selections.Set(slot, resolved)
	}
	ok, results := ValidateSlots(selections)
	return SlotReport{IsValid: ok, Slots: results}, nil
}

// resolveRefs turns stored references into selections over the session's
// files. Each selection gets its own copy of the source configuration.
func resolveRefs(sess model.Session, refs []model.SelectionRef) ([]model.SlotSelection, error) {
	out := make([]model.SlotSelection, 0, len(refs))
	for _, ref := range refs {
		src, ok := sess.Source(ref.SourceID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, ref.SourceID)
		}
		cfg := src.Config.Clone()
		out = append(out, model.SlotSelection{Source: &cfg, SourceSlot: ref.SourceSlot})
	}
	return out, nil
}

func parseSlot(n int) (model.Slot, error) {
	slot, err := model.ParseSlot(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSlot, n)
	}
	return slot, nil
}

func slotWarnings(results model.SlotMap[model.ConcatenationResult]) []string {
	var out []string
	results.Each(func(slot model.Slot, r model.ConcatenationResult) {
		if r.Warning != "" {
			out = append(out, slot.Label()+": "+r.Warning)
		}
	})
	return out
}
