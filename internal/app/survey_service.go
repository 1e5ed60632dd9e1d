package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"survey-game-service/internal/domain"
	"survey-game-service/internal/survey"
)

// QuestionRepository loads every question record (from cache/backing store).
type QuestionRepository interface {
	ListQuestions(ctx context.Context) ([]domain.QuestionRecord, error)
}

// SessionRepository abstracts where session snapshots live (in-memory, Redis, etc).
type SessionRepository interface {
	Save(ctx context.Context, record SessionRecord) error
	Load(ctx context.Context, sessionID string) (SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
}

// PlayerRepository stores game stats per respondent and ranks them.
type PlayerRepository interface {
	GetPlayer(ctx context.Context, respondentID string) (domain.Player, error)
	SavePlayer(ctx context.Context, player domain.Player) error
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// ResponseSink persists answer events. Writes are best effort and run off the request path.
type ResponseSink interface {
	Persist(ctx context.Context, response domain.Response) error
}

// SessionRecord is the stored form of a survey session.
type SessionRecord struct {
	ID           string          `json:"id"`
	RespondentID string          `json:"respondentId"`
	DisplayName  string          `json:"displayName"`
	Locale       string          `json:"locale"`
	Progress     survey.Snapshot `json:"progress"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// SessionView is what clients see after every action.
type SessionView struct {
	SessionID string           `json:"sessionId"`
	Current   *survey.View     `json:"current,omitempty"`
	Stats     survey.GameStats `json:"stats"`
	Completed bool             `json:"completed"`
	// Empty means there is nothing to show: the question store returned no usable questions.
	Empty bool `json:"empty"`
}

// AnswerOutcome is the result of an answer, skip or jump.
type AnswerOutcome struct {
	SessionView
	Reward    *survey.Reward `json:"reward,omitempty"`
	Skipped   []string       `json:"skipped,omitempty"`
	// Persisted reports that every response was accepted for writing to the sink.
	Persisted bool `json:"persisted"`
}

// Option configures a SurveyService.
type Option func(*SurveyService)

// WithClock replaces time.Now; used by tests for deterministic timing.
func WithClock(now func() time.Time) Option {
	return func(s *SurveyService) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SurveyService) { s.logger = logger }
}

// WithDefaultLocale sets the locale prompts fall back to.
func WithDefaultLocale(locale string) Option {
	return func(s *SurveyService) {
		if locale != "" {
			s.defaultLocale = locale
		}
	}
}

// WithLeaderboardLimit sets how many entries the live leaderboard feed carries.
func WithLeaderboardLimit(limit int) Option {
	return func(s *SurveyService) {
		if limit > 0 {
			s.leaderboardLimit = limit
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *SurveyService) { s.newID = gen }
}

// WithWriteBuffer sets how many sink writes may wait for the background writer.
func WithWriteBuffer(size int) Option {
	return func(s *SurveyService) {
		if size > 0 {
			s.writeBuffer = size
		}
	}
}

// SurveyService hosts survey sessions: it owns navigation, scoring and persistence side effects.
type SurveyService struct {
	questions QuestionRepository
	sessions  SessionRepository
	players   PlayerRepository
	sink      ResponseSink
	sequencer *survey.Sequencer

	now              func() time.Time
	newID            func() string
	logger           *slog.Logger
	defaultLocale    string
	leaderboardLimit int
	persistTimeout   time.Duration
	writeBuffer      int

	locks sync.Map
	feed  *leaderboardFeed

	writes     chan pendingWrite
	pending    sync.WaitGroup
	writesMu   sync.RWMutex
	closed     bool
	writerDone chan struct{}
}

type pendingWrite struct {
	ctx      context.Context
	response domain.Response
}

// NewSurveyService wires the service. sink may be nil, in which case answers are kept only in
// the session. Otherwise a background writer drains responses to the sink until Close.
func NewSurveyService(questions QuestionRepository, sessions SessionRepository, players PlayerRepository, sink ResponseSink, sequencer *survey.Sequencer, opts ...Option) *SurveyService {
	if sequencer == nil {
		sequencer = survey.NewSequencer(nil)
	}
	s := &SurveyService{
		questions:        questions,
		sessions:         sessions,
		players:          players,
		sink:             sink,
		sequencer:        sequencer,
		now:              time.Now,
		newID:            uuid.NewString,
		logger:           slog.Default(),
		defaultLocale:    survey.DefaultLocale,
		leaderboardLimit: 100,
		persistTimeout:   5 * time.Second,
		writeBuffer:      256,
		writerDone:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.feed = newLeaderboardFeed(s.now)
	if s.sink == nil {
		close(s.writerDone)
		return s
	}
	s.writes = make(chan pendingWrite, s.writeBuffer)
	go s.writeLoop()
	return s
}

// liveSession is a session rebuilt for the duration of one action.
type liveSession struct {
	record   SessionRecord
	sections []survey.Section
	state    survey.ProgressState
	player   domain.Player
}

// Start opens a session for a respondent at the first question of the first section.
// When no questions are available the returned view is Empty and no session is stored.
func (s *SurveyService) Start(ctx context.Context, respondentID, displayName, locale string) (SessionView, error) {
	sections, err := s.loadSections(ctx)
	if err != nil {
		return SessionView{}, err
	}

	unlockPlayer := s.lock(playerLockKey(respondentID))
	defer unlockPlayer()

	player, err := s.loadPlayer(ctx, respondentID, displayName)
	if err != nil {
		return SessionView{}, err
	}
	if len(sections) == 0 {
		s.logger.Warn("no questions available", "respondent", respondentID)
		return SessionView{Stats: player.Stats, Empty: true}, nil
	}

	if locale == "" {
		locale = s.defaultLocale
	}
	now := s.now()
	ls := &liveSession{
		record: SessionRecord{
			ID:           s.newID(),
			RespondentID: respondentID,
			DisplayName:  displayName,
			Locale:       locale,
			CreatedAt:    now,
		},
		sections: sections,
		state:    survey.NewProgress(now),
		player:   player,
	}
	if err := s.saveSession(ctx, ls); err != nil {
		return SessionView{}, err
	}
	if err := s.savePlayer(ctx, ls); err != nil {
		return SessionView{}, err
	}
	s.logger.Info("survey session started",
		"session", ls.record.ID,
		"respondent", respondentID,
		"sections", len(sections),
		"questions", survey.TotalQuestionCount(sections),
	)
	return s.view(ls), nil
}

// Resume reloads a stored session and shows its current question again, restarting its timer.
func (s *SurveyService) Resume(ctx context.Context, sessionID string) (SessionView, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ls, err := s.load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if !ls.state.Completed {
		ls.state.QuestionStart = s.now()
		if err := s.saveSession(ctx, ls); err != nil {
			return SessionView{}, err
		}
	}
	return s.view(ls), nil
}

// Current returns the session view without changing anything.
func (s *SurveyService) Current(ctx context.Context, sessionID string) (SessionView, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ls, err := s.load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(ls), nil
}

// Answer records value for the current question, scores it and moves to the next question.
func (s *SurveyService) Answer(ctx context.Context, sessionID, value string, quality survey.Quality) (AnswerOutcome, error) {
	return s.respond(ctx, sessionID, value, false, quality)
}

// Skip records the current question as skipped and moves on.
func (s *SurveyService) Skip(ctx context.Context, sessionID string) (AnswerOutcome, error) {
	return s.respond(ctx, sessionID, "", true, survey.QualityGood)
}

func (s *SurveyService) respond(ctx context.Context, sessionID, value string, skipped bool, quality survey.Quality) (AnswerOutcome, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ls, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	q, err := s.current(ls)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if !skipped && !q.Accepts(value) {
		return AnswerOutcome{}, fmt.Errorf("%w: %s", domain.ErrInvalidAnswer, q.ID)
	}
	unlockPlayer, err := s.lockPlayer(ctx, ls)
	if err != nil {
		return AnswerOutcome{}, err
	}
	defer unlockPlayer()

	now := s.now()
	elapsed := ls.state.Elapsed(now)
	sec, _ := survey.CurrentSection(ls.state, ls.sections)

	ls.state = survey.RecordAnswer(ls.state, q, value, skipped, elapsed)
	stats, reward := survey.ScoreAnswer(ls.player.Stats, elapsed, quality)
	ls.player.Stats = survey.UpdateStreak(stats, !skipped)
	ls.state = survey.Advance(ls.state, ls.sections, survey.Next, now)

	if err := s.commit(ctx, ls); err != nil {
		return AnswerOutcome{}, err
	}

	persisted := s.persist(ctx, domain.Response{
		SessionID:      ls.record.ID,
		RespondentID:   ls.record.RespondentID,
		QuestionID:     q.ID,
		Section:        sec.Name,
		Answer:         value,
		Skipped:        skipped,
		ElapsedSeconds: elapsed,
		Locale:         ls.record.Locale,
		AnsweredAt:     now,
	})
	if ls.state.Completed {
		s.logger.Info("survey session completed", "session", ls.record.ID, "answered", ls.state.AnsweredCount())
	}
	return AnswerOutcome{
		SessionView: s.view(ls),
		Reward:      &reward,
		Persisted:   persisted,
	}, nil
}

// Back moves to the previous question. It is a no-op at the very first question.
func (s *SurveyService) Back(ctx context.Context, sessionID string) (SessionView, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ls, err := s.load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	if ls.state.Completed {
		return SessionView{}, domain.ErrSessionCompleted
	}
	ls.state = survey.Advance(ls.state, ls.sections, survey.Back, s.now())
	if err := s.saveSession(ctx, ls); err != nil {
		return SessionView{}, err
	}
	return s.view(ls), nil
}

// Jump skips the rest of the current section up to its last question. Every jump that moves is
// scored once and every newly skipped question is persisted. At the last question it changes
// nothing.
func (s *SurveyService) Jump(ctx context.Context, sessionID string) (AnswerOutcome, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	ls, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if _, err := s.current(ls); err != nil {
		return AnswerOutcome{}, err
	}
	unlockPlayer, err := s.lockPlayer(ctx, ls)
	if err != nil {
		return AnswerOutcome{}, err
	}
	defer unlockPlayer()

	now := s.now()
	elapsed := ls.state.Elapsed(now)
	sec, _ := survey.CurrentSection(ls.state, ls.sections)
	next, skipped := survey.JumpToSectionEnd(ls.state, ls.sections, elapsed, now)
	if next.QuestionIndex == ls.state.QuestionIndex {
		return AnswerOutcome{SessionView: s.view(ls)}, nil
	}
	ls.state = next

	stats, reward := survey.ScoreAnswer(ls.player.Stats, elapsed, survey.QualityGood)
	ls.player.Stats = survey.UpdateStreak(stats, false)
	if err := s.commit(ctx, ls); err != nil {
		return AnswerOutcome{}, err
	}

	persisted := len(skipped) > 0
	for _, id := range skipped {
		a, _ := ls.state.Answer(id)
		ok := s.persist(ctx, domain.Response{
			SessionID:      ls.record.ID,
			RespondentID:   ls.record.RespondentID,
			QuestionID:     id,
			Section:        sec.Name,
			Skipped:        true,
			ElapsedSeconds: a.TimeSpent,
			Locale:         ls.record.Locale,
			AnsweredAt:     now,
		})
		persisted = persisted && ok
	}
	return AnswerOutcome{
		SessionView: s.view(ls),
		Reward:      &reward,
		Skipped:     skipped,
		Persisted:   persisted,
	}, nil
}

// End discards a session.
func (s *SurveyService) End(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	err := s.sessions.Delete(ctx, sessionID)
	unlock()
	s.locks.Delete(sessionID)
	return err
}

// Leaderboard returns the top players. limit <= 0 uses the configured default.
func (s *SurveyService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = s.leaderboardLimit
	}
	entries, err := s.players.Top(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}

// Subscribe returns a channel of leaderboard updates, primed with the current leaderboard.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SurveyService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx, s.leaderboardLimit)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.subscribe(initial)
	return ch, cancel, nil
}

func (s *SurveyService) lock(key string) func() {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Stats belong to the respondent, so sessions of the same respondent serialize their updates.
func playerLockKey(respondentID string) string {
	return "player:" + respondentID
}

// lockPlayer takes the respondent lock and loads the player under it.
func (s *SurveyService) lockPlayer(ctx context.Context, ls *liveSession) (func(), error) {
	unlock := s.lock(playerLockKey(ls.record.RespondentID))
	player, err := s.loadPlayer(ctx, ls.record.RespondentID, ls.record.DisplayName)
	if err != nil {
		unlock()
		return nil, err
	}
	ls.player = player
	return unlock, nil
}

func (s *SurveyService) loadSections(ctx context.Context) ([]survey.Section, error) {
	records, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return s.sequencer.Build(domain.NormalizeAll(records)), nil
}

func (s *SurveyService) loadPlayer(ctx context.Context, respondentID, displayName string) (domain.Player, error) {
	player, err := s.players.GetPlayer(ctx, respondentID)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		return domain.Player{
			RespondentID: respondentID,
			DisplayName:  displayName,
			Stats:        survey.NewGameStats(),
			UpdatedAt:    s.now(),
		}, nil
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("load player: %w", err)
	}
	if displayName != "" {
		player.DisplayName = displayName
	}
	return player, nil
}

func (s *SurveyService) load(ctx context.Context, sessionID string) (*liveSession, error) {
	ls, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ls.player, err = s.loadPlayer(ctx, ls.record.RespondentID, ls.record.DisplayName); err != nil {
		return nil, err
	}
	return ls, nil
}

// loadSession rebuilds the session without its player.
func (s *SurveyService) loadSession(ctx context.Context, sessionID string) (*liveSession, error) {
	record, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sections, err := s.loadSections(ctx)
	if err != nil {
		return nil, err
	}
	state, err := survey.Restore(record.Progress, sections)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", sessionID, err)
	}
	return &liveSession{record: record, sections: sections, state: state}, nil
}

func (s *SurveyService) current(ls *liveSession) (survey.Question, error) {
	if ls.state.Completed {
		return survey.Question{}, domain.ErrSessionCompleted
	}
	q, ok := survey.CurrentQuestion(ls.state, ls.sections)
	if !ok {
		return survey.Question{}, domain.ErrNoCurrentQuestion
	}
	return q, nil
}

// commit stores the new progress and stats, then refreshes leaderboard subscribers.
func (s *SurveyService) commit(ctx context.Context, ls *liveSession) error {
	if err := s.saveSession(ctx, ls); err != nil {
		return err
	}
	if err := s.savePlayer(ctx, ls); err != nil {
		return err
	}
	if s.feed.hasSubscribers() {
		lb, err := s.Leaderboard(ctx, s.leaderboardLimit)
		if err != nil {
			s.logger.Warn("leaderboard refresh failed", "error", err)
			return nil
		}
		s.feed.publish(lb)
	}
	return nil
}

func (s *SurveyService) saveSession(ctx context.Context, ls *liveSession) error {
	ls.record.Progress = ls.state.Snapshot()
	if err := s.sessions.Save(ctx, ls.record); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SurveyService) savePlayer(ctx context.Context, ls *liveSession) error {
	ls.player.UpdatedAt = s.now()
	if err := s.players.SavePlayer(ctx, ls.player); err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

// persist hands a response to the background writer without blocking. It reports false when
// there is no sink, the service is closed or the write buffer is full.
func (s *SurveyService) persist(ctx context.Context, response domain.Response) bool {
	if s.sink == nil {
		return false
	}
	s.writesMu.RLock()
	defer s.writesMu.RUnlock()
	if s.closed {
		s.logger.Warn("response dropped: service closed", "session", response.SessionID, "question", response.QuestionID)
		return false
	}
	s.pending.Add(1)
	select {
	case s.writes <- pendingWrite{ctx: context.WithoutCancel(ctx), response: response}:
		return true
	default:
		s.pending.Done()
		s.logger.Warn("response dropped: write buffer full", "session", response.SessionID, "question", response.QuestionID)
		return false
	}
}

func (s *SurveyService) writeLoop() {
	defer close(s.writerDone)
	for w := range s.writes {
		s.write(w)
		s.pending.Done()
	}
}

func (s *SurveyService) write(w pendingWrite) {
	ctx, cancel := context.WithTimeout(w.ctx, s.persistTimeout)
	defer cancel()
	if err := s.sink.Persist(ctx, w.response); err != nil {
		s.logger.Warn("response not persisted",
			"session", w.response.SessionID,
			"question", w.response.QuestionID,
			"error", err,
		)
	}
}

// Flush waits until every accepted response has been handed to the sink. It must not run
// concurrently with new answers.
func (s *SurveyService) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting responses and waits for the background writer to drain.
func (s *SurveyService) Close(ctx context.Context) error {
	s.writesMu.Lock()
	if !s.closed && s.writes != nil {
		close(s.writes)
	}
	s.closed = true
	s.writesMu.Unlock()

	select {
	case <-s.writerDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SurveyService) view(ls *liveSession) SessionView {
	v := SessionView{
		SessionID: ls.record.ID,
		Stats:     ls.player.Stats,
		Completed: survey.IsComplete(ls.state),
		Empty:     len(ls.sections) == 0,
	}
	if cur, ok := survey.Present(ls.state, ls.sections, ls.record.Locale, s.defaultLocale); ok {
		v.Current = &cur
	}
	return v
}
