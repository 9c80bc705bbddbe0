package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"trockle-api/internal/database"
	"trockle-api/internal/models"
	"trockle-api/internal/swipe"
)

const (
	dragStep      = 20.0
	frameInterval = time.Second / 60
	cardWidth     = 44
	trackColumns  = 24
)

// recordFunc persists a decision made in the viewer.
type recordFunc func(ctx context.Context, d models.Decision) error

type frameMsg time.Time

// tickAnimator plays exit animations on bubbletea ticks. Completion runs
// inside Update, which owns the deck.
type tickAnimator struct {
	req     swipe.AnimationRequest
	fromX   float64
	started time.Time
	done    func()
	active  bool
	now     func() time.Time
}

func (a *tickAnimator) Animate(req swipe.AnimationRequest, done func()) {
	if req.Kind == swipe.AnimationSpring || req.Duration <= 0 {
		if done != nil {
			done()
		}
		return
	}
	a.req = req
	a.started = a.now()
	a.done = done
	a.active = true
}

func (a *tickAnimator) progress(t time.Time) float64 {
	if !a.active {
		return 0
	}
	p := float64(t.Sub(a.started)) / float64(a.req.Duration)
	return math.Max(0, math.Min(1, p))
}

// advance completes the running animation once its duration has elapsed.
func (a *tickAnimator) advance(t time.Time) bool {
	if !a.active || t.Sub(a.started) < a.req.Duration {
		return false
	}
	done := a.done
	a.active = false
	a.done = nil
	if done != nil {
		done()
	}
	return true
}

func (a *tickAnimator) x(t time.Time) float64 {
	return a.fromX + (a.req.ToX-a.fromX)*a.progress(t)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	likeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1)
	skipStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160")).Padding(0, 1)
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Width(cardWidth).Padding(0, 1)
)

type model struct {
	deck     *swipe.Deck
	anim     *tickAnimator
	record   recordFunc
	viewerID string
	titles   map[string]string

	dx      float64
	decided int
	status  string
	err     error
}

func newModel(candidates []models.Trade, viewerID string, cfg swipe.Config, record recordFunc, now func() time.Time) *model {
	m := &model{
		anim:     &tickAnimator{now: now},
		record:   record,
		viewerID: viewerID,
		titles:   make(map[string]string, len(candidates)),
	}
	for _, c := range candidates {
		m.titles[c.ID] = c.Title
	}

	handlers := swipe.Handlers{OnLike: m.onDecision, OnSkip: m.onDecision}
	m.deck = swipe.NewDeck(candidates, handlers,
		swipe.WithConfig(cfg),
		swipe.WithAnimator(m.anim),
		swipe.WithClock(now),
	)
	return m
}

func (m *model) onDecision(d swipe.Decision) {
	err := m.record(context.Background(), models.Decision{
		ID:          uuid.New().String(),
		ViewerID:    m.viewerID,
		CandidateID: d.CandidateID,
		Direction:   d.Direction,
		DecidedAt:   d.At,
	})
	if err != nil && !errors.Is(err, database.ErrDuplicate) {
		m.err = err
		return
	}
	m.decided++
	m.status = fmt.Sprintf("%s: %s", d.Direction, m.titles[d.CandidateID])
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.err = nil
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "left", "h":
			m.drag(-dragStep)
		case "right", "l":
			m.drag(dragStep)
		case " ", "enter":
			return m, m.settle(func() ([]swipe.Effect, error) { return m.deck.Release(m.dx, 0) })
		case "y":
			return m, m.settle(m.deck.Like)
		case "n":
			return m, m.settle(m.deck.Skip)
		}

	case frameMsg:
		if m.anim.advance(time.Time(msg)) {
			m.dx = 0
			return m, nil
		}
		if m.anim.active {
			return m, tick()
		}
	}

	return m, nil
}

func (m *model) drag(delta float64) {
	frame, err := m.deck.Drag(m.dx+delta, 0)
	if err != nil {
		m.err = err
		return
	}
	m.dx = frame.DX
}

// settle runs an action that may start an exit animation.
func (m *model) settle(action func() ([]swipe.Effect, error)) tea.Cmd {
	if !m.anim.active {
		m.anim.fromX = m.dx
	}
	if _, err := action(); err != nil {
		m.err = err
		return nil
	}
	if m.anim.active {
		return tick()
	}
	m.dx = 0
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *model) View() string {
	var b strings.Builder

	frame := m.deck.Frame()
	fmt.Fprintf(&b, "%s  %s\n\n",
		titleStyle.Render("trockle"),
		mutedStyle.Render(fmt.Sprintf("%d decided", m.decided)))

	current, ok := m.deck.Current()
	if !ok {
		b.WriteString("No more trades nearby. Check back later.\n\n")
		b.WriteString(mutedStyle.Render("q quit"))
		return b.String()
	}

	cfg := m.deck.Config()
	x := m.dx
	if m.anim.active {
		x = m.anim.x(m.anim.now())
	}

	b.WriteString(badges(cfg, x))
	b.WriteString("\n")
	b.WriteString(card(current, offset(cfg, x)))
	b.WriteString("\n")

	status := fmt.Sprintf("card %d/%d  tilt %+.1f°", frame.Cursor+1, frame.Total, swipe.Rotation(cfg, x))
	if n := len(m.deck.Upcoming()); n > 0 {
		status += fmt.Sprintf("  +%d behind", n)
	}
	b.WriteString(mutedStyle.Render(status))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("←/→ drag  space release  y like  n skip  q quit"))
	return b.String()
}

func badges(cfg swipe.Config, x float64) string {
	var parts []string
	if op := swipe.SkipOpacity(cfg, x); op > 0 {
		parts = append(parts, skipStyle.Render(fmt.Sprintf("SKIP %3.0f%%", op*100)))
	}
	if op := swipe.LikeOpacity(cfg, x); op > 0 {
		parts = append(parts, likeStyle.Render(fmt.Sprintf("LIKE %3.0f%%", op*100)))
	}
	return strings.Join(parts, " ")
}

// offset maps the horizontal displacement onto a left margin in columns.
func offset(cfg swipe.Config, x float64) int {
	col := trackColumns + int(math.Round(x/cfg.ScreenWidth*trackColumns))
	if col < 0 {
		return 0
	}
	if col > 2*trackColumns {
		return 2 * trackColumns
	}
	return col
}

func card(t models.Trade, margin int) string {
	lines := []string{
		titleStyle.Render(t.Title),
		mutedStyle.Render(t.Category),
		"",
		t.Description,
		"",
		"Wants: " + t.ReturnOffer,
		fmt.Sprintf("When:  %s %s", t.Availability.Day, t.Availability.Time),
	}
	if t.Location != "" {
		lines = append(lines, "Where: "+t.Location)
	}
	return cardStyle.MarginLeft(margin).Render(strings.Join(lines, "\n"))
}
