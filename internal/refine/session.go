package refine

// Session is an interactive refinement: offer four, optionally reroll, then
// apply. It is not safe for concurrent use.
type Session struct {
	rules   *Rules
	gemKey  string
	pool    []string
	rng     RandomSource
	snap    Snapshot
	offered []Action
}

// NewSession starts a session. A nil rng uses DefaultRNG.
func (r *Rules) NewSession(gemKey string, start Snapshot, rng RandomSource) (*Session, error) {
	if err := r.Validate(gemKey, start); err != nil {
		return nil, err
	}
	pool, _ := r.Pool(gemKey)
	if rng == nil {
		rng = DefaultRNG()
	}
	return &Session{rules: r, gemKey: gemKey, pool: pool, rng: rng, snap: start}, nil
}

func (s *Session) Snapshot() Snapshot { return s.snap }
func (s *Session) GemKey() string     { return s.gemKey }
func (s *Session) Grade() GemGrade    { return GradeOf(s.snap.State.Total()) }

// Offered returns the current four without drawing.
func (s *Session) Offered() []Action { return append([]Action(nil), s.offered...) }

// Offer returns the current four, drawing them if none are pending.
func (s *Session) Offer() ([]Action, error) {
	if s.snap.AttemptsLeft <= 0 {
		return nil, ErrNoAttempts
	}
	if s.offered == nil {
		s.draw()
	}
	return s.Offered(), nil
}

// Reroll spends one charge to replace the pending four.
func (s *Session) Reroll() ([]Action, error) {
	switch {
	case s.snap.AttemptsLeft <= 0:
		return nil, ErrNoAttempts
	case !s.snap.Unlocked:
		return nil, ErrRerollLocked
	case s.snap.Rerolls <= 0:
		return nil, ErrNoRerolls
	}
	s.snap.Rerolls--
	s.draw()
	return s.Offered(), nil
}

// Apply performs one of the offered actions.
func (s *Session) Apply(a Action) (Snapshot, error) {
	if s.snap.AttemptsLeft <= 0 {
		return s.snap, ErrNoAttempts
	}
	idx := -1
	for i, o := range s.offered {
		if o == a {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.snap, ErrNotOffered
	}
	Apply(&s.snap, a, s.pool, s.rules.BaseGold, s.rng)
	s.offered = nil
	return s.snap, nil
}

// ApplyRandom applies one of the offered four chosen uniformly, as the game
// does.
func (s *Session) ApplyRandom() (Action, Snapshot, error) {
	four, err := s.Offer()
	if err != nil {
		return Action{}, s.snap, err
	}
	a := four[Intn(s.rng, len(four))]
	snap, err := s.Apply(a)
	return a, snap, err
}

func (s *Session) draw() {
	s.offered = SampleFour(BuildMenu(s.snap, s.pool, s.rules.Weights), s.rng)
}
