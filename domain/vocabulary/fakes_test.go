package vocabulary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/vocab/domain/graph"
	"github.com/emergent-company/vocab/pkg/apperror"
)

// testMetrics is shared by all tests in the package: promauto registers
// collectors on the default registry, which tolerates only one
// registration per process.
var testMetrics = NewMetrics()

var (
	_ vocabStore    = (*memStore)(nil)
	_ gateStore     = (*memStore)(nil)
	_ decisionStore = (*memStore)(nil)
	_ mutationStore = (*memStore)(nil)
	_ historyReader = (*memStore)(nil)
	_ edgeStore     = (*memStore)(nil)
)

type memEdge struct {
	id      uuid.UUID
	typ     string
	deleted bool
}

// memStore is an in-memory stand-in for the vocabulary and graph
// repositories, implementing the store interfaces the engine components
// consume.
type memStore struct {
	types      map[string]*RelationshipType
	edges      []*memEdge
	history    []HistoryEntry
	recs       map[uuid.UUID]*PruningRecommendation
	prefs      []DecisionPreference
	proposals  map[uuid.UUID]*CategoryProposal
	categories map[string]*Category
	nextHist   int64
}

func newMemStore() *memStore {
	return &memStore{
		types:      map[string]*RelationshipType{},
		recs:       map[uuid.UUID]*PruningRecommendation{},
		proposals:  map[uuid.UUID]*CategoryProposal{},
		categories: map[string]*Category{},
	}
}

func (s *memStore) addType(rt RelationshipType) {
	cp := rt
	s.types[rt.Name] = &cp
}

func (s *memStore) addEdges(typ string, n int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		e := &memEdge{id: uuid.New(), typ: typ}
		s.edges = append(s.edges, e)
		ids = append(ids, e.id)
	}
	return ids
}

func (s *memStore) edgeCount(typ string) int {
	n := 0
	for _, e := range s.edges {
		if e.typ == typ && !e.deleted {
			n++
		}
	}
	return n
}

func (s *memStore) GetType(ctx context.Context, name string) (*RelationshipType, error) {
	rt, ok := s.types[name]
	if !ok {
		return nil, nil
	}
	cp := *rt
	return &cp, nil
}

func (s *memStore) CountActiveTypes(ctx context.Context) (int, error) {
	n := 0
	for _, rt := range s.types {
		if rt.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetActiveTypes(ctx context.Context) ([]RelationshipType, error) {
	names := make([]string, 0, len(s.types))
	for name, rt := range s.types {
		if rt.IsActive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]RelationshipType, 0, len(names))
	for _, name := range names {
		out = append(out, *s.types[name])
	}
	return out, nil
}

func (s *memStore) IncrementUsage(ctx context.Context, name string) error {
	if rt, ok := s.types[name]; ok {
		rt.UsageCount++
	}
	return nil
}

func (s *memStore) UpdateTypeStats(ctx context.Context, rt *RelationshipType) error {
	cur, ok := s.types[rt.Name]
	if !ok {
		return nil
	}
	cur.UsageCount = rt.UsageCount
	cur.AvgTraversal = rt.AvgTraversal
	cur.BridgeCount = rt.BridgeCount
	cur.Trend14d = rt.Trend14d
	cur.ValueScore = rt.ValueScore
	return nil
}

func (s *memStore) ReactivateType(ctx context.Context, name string) error {
	if rt, ok := s.types[name]; ok {
		rt.IsActive = true
	}
	return nil
}

func (s *memStore) InsertTypeIfAbsentUnderCap(ctx context.Context, rt *RelationshipType, hardLimit int) (bool, error) {
	if _, ok := s.types[rt.Name]; ok {
		return false, nil
	}
	active, _ := s.CountActiveTypes(ctx)
	if active >= hardLimit {
		return false, nil
	}
	cp := *rt
	cp.IsActive = true
	s.types[cp.Name] = &cp
	return true, nil
}

func (s *memStore) DeactivateType(ctx context.Context, name string) error {
	rt, ok := s.types[name]
	if !ok {
		return apperror.NewNotFound("RelationshipType", name)
	}
	if rt.IsBuiltin {
		return apperror.NewInvariantViolation(fmt.Sprintf("builtin type %s cannot be deleted", name))
	}
	rt.IsActive = false
	return nil
}

func (s *memStore) RecordMerge(ctx context.Context, source, target string) error {
	if err := s.DeactivateType(ctx, source); err != nil {
		return err
	}
	tgt, ok := s.types[target]
	if !ok {
		return apperror.NewNotFound("RelationshipType", target)
	}
	for _, syn := range tgt.Synonyms {
		if syn == source {
			return nil
		}
	}
	tgt.Synonyms = append(tgt.Synonyms, source)
	return nil
}

func (s *memStore) RemoveSynonym(ctx context.Context, source, target string) error {
	tgt, ok := s.types[target]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(tgt.Synonyms))
	for _, syn := range tgt.Synonyms {
		if syn != source {
			out = append(out, syn)
		}
	}
	tgt.Synonyms = out
	return nil
}

func (s *memStore) RestoreTypeRow(ctx context.Context, rt *RelationshipType) error {
	cp := *rt
	cp.IsActive = true
	s.types[cp.Name] = &cp
	return nil
}

func (s *memStore) CountActiveCategories(ctx context.Context) (int, error) {
	n := 0
	for _, c := range s.categories {
		if c.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateCategory(ctx context.Context, category *Category, categoryMax int) error {
	count, _ := s.CountActiveCategories(ctx)
	if count >= categoryMax {
		return apperror.NewInvariantViolation(
			fmt.Sprintf("category count %d already at maximum %d; merge categories first", count, categoryMax))
	}
	cp := *category
	s.categories[cp.Name] = &cp
	return nil
}

func (s *memStore) CreateCategoryProposal(ctx context.Context, proposal *CategoryProposal) error {
	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	cp := *proposal
	s.proposals[cp.ID] = &cp
	return nil
}

func (s *memStore) GetCategoryProposal(ctx context.Context, id uuid.UUID) (*CategoryProposal, error) {
	p, ok := s.proposals[id]
	if !ok {
		return nil, apperror.NewNotFound("CategoryProposal", id.String())
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ResolveCategoryProposal(ctx context.Context, id uuid.UUID, status string) error {
	p, ok := s.proposals[id]
	if !ok || p.Status != ProposalPending {
		return apperror.ErrConflict.WithMessage("proposal is not pending")
	}
	p.Status = status
	return nil
}

func (s *memStore) ReassignTypeCategory(ctx context.Context, typeName, category string) error {
	if rt, ok := s.types[typeName]; ok {
		rt.Category = category
	}
	return nil
}

func (s *memStore) CreateRecommendation(ctx context.Context, rec *PruningRecommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = RecommendationPending
	}
	cp := *rec
	s.recs[cp.ID] = &cp
	return nil
}

func (s *memStore) GetRecommendation(ctx context.Context, id uuid.UUID) (*PruningRecommendation, error) {
	r, ok := s.recs[id]
	if !ok {
		return nil, apperror.NewNotFound("PruningRecommendation", id.String())
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ListPendingAITL(ctx context.Context, limit int) ([]PruningRecommendation, error) {
	var out []PruningRecommendation
	for _, r := range s.recs {
		if r.Status == RecommendationPending && r.Mode == ModeAITL {
			out = append(out, *r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) HasUnresolvedRecommendation(ctx context.Context) (bool, error) {
	for _, r := range s.recs {
		switch r.Status {
		case RecommendationPending, RecommendationAIDecided, RecommendationEscalated:
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) TransitionRecommendation(ctx context.Context, id uuid.UUID, from []string, to string, decidedBy string) error {
	r, ok := s.recs[id]
	if ok {
		for _, f := range from {
			if r.Status != f {
				continue
			}
			r.Status = to
			if decidedBy != "" {
				r.DecidedBy = &decidedBy
			}
			if to == RecommendationExecuted {
				now := time.Now()
				r.ExecutedAt = &now
			}
			return nil
		}
	}
	return apperror.ErrConflict.WithMessage(
		fmt.Sprintf("recommendation %s is not in state %v", id, from))
}

func (s *memStore) RecordAIDecision(ctx context.Context, id uuid.UUID, confidence float64, reasoning, status string) error {
	r, ok := s.recs[id]
	if !ok {
		return apperror.NewNotFound("PruningRecommendation", id.String())
	}
	decidedBy := PerformerAI
	r.Confidence = &confidence
	r.AIReasoning = &reasoning
	r.Status = status
	r.DecidedBy = &decidedBy
	return nil
}

func (s *memStore) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	s.nextHist++
	entry.ID = s.nextHist
	entry.CreatedAt = time.Now()
	s.history = append(s.history, *entry)
	return nil
}

func (s *memStore) ListHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	out := make([]HistoryEntry, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		out = append(out, s.history[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) LatestHistoryFor(ctx context.Context, typeName, action string) (*HistoryEntry, error) {
	for i := len(s.history) - 1; i >= 0; i-- {
		e := s.history[i]
		if e.Action != action {
			continue
		}
		for _, name := range e.TypeNames {
			if name == typeName {
				cp := e
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (s *memStore) AddPreference(ctx context.Context, pref *DecisionPreference) error {
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	pref.IsActive = true
	s.prefs = append(s.prefs, *pref)
	return nil
}

func (s *memStore) ListActivePreferences(ctx context.Context) ([]DecisionPreference, error) {
	out := make([]DecisionPreference, 0, len(s.prefs))
	for _, p := range s.prefs {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) CreateEdge(ctx context.Context, edge *graph.Edge) error {
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}
	s.edges = append(s.edges, &memEdge{id: edge.ID, typ: edge.Type})
	return nil
}

func (s *memStore) GetAllUsageStats(ctx context.Context) (map[string]*graph.UsageStats, error) {
	stats := map[string]*graph.UsageStats{}
	for _, e := range s.edges {
		if e.deleted {
			continue
		}
		st, ok := stats[e.typ]
		if !ok {
			st = &graph.UsageStats{Type: e.typ}
			stats[e.typ] = st
		}
		st.UsageCount++
	}
	return stats, nil
}

func (s *memStore) RewireEdges(ctx context.Context, fromTypes []string, toType string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, e := range s.edges {
		if e.deleted {
			continue
		}
		for _, from := range fromTypes {
			if e.typ == from {
				e.typ = toType
				ids = append(ids, e.id)
				break
			}
		}
	}
	return ids, nil
}

func (s *memStore) RewireEdgesByID(ctx context.Context, ids []uuid.UUID, toType string) error {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for _, e := range s.edges {
		if want[e.id] {
			e.typ = toType
		}
	}
	return nil
}

func (s *memStore) SoftDeleteEdgesByType(ctx context.Context, types []string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, e := range s.edges {
		if e.deleted {
			continue
		}
		for _, typ := range types {
			if e.typ == typ {
				e.deleted = true
				ids = append(ids, e.id)
				break
			}
		}
	}
	return ids, nil
}

func (s *memStore) RestoreEdgesByID(ctx context.Context, ids []uuid.UUID) error {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for _, e := range s.edges {
		if want[e.id] {
			e.deleted = false
		}
	}
	return nil
}

// memTx runs the mutation directly against the store; fake mutations
// need no transactional isolation
func memTx(s *memStore) txRunner {
	return func(ctx context.Context, fn func(ctx context.Context, store mutationStore) error) error {
		return fn(ctx, s)
	}
}

// countingEmbedder returns a fixed vector and counts calls
type countingEmbedder struct {
	vector []float32
	calls  int
}

func (e *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.vector, nil
}

func (e *countingEmbedder) IsEnabled() bool { return true }

// scriptedReasoner plays back a canned completion or error
type scriptedReasoner struct {
	completion string
	err        error
	offline    bool
}

func (r *scriptedReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.completion, nil
}

func (r *scriptedReasoner) IsConfigured() bool { return !r.offline }

// countingExecutor records Execute calls without touching any store
type countingExecutor struct {
	calls int
	last  *PruningRecommendation
}

func (e *countingExecutor) Execute(ctx context.Context, rec *PruningRecommendation, performer string) *ExecutionResult {
	e.calls++
	e.last = rec
	return &ExecutionResult{}
}
