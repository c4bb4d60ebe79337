package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "totem_quiz"

// Metrics groups the bot's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg                prometheus.Registerer
	quizzesStarted     prometheus.Counter
	answersAccepted    prometheus.Counter
	invalidTransitions *prometheus.CounterVec
	outcomes           *prometheus.CounterVec
	noOutcomes         *prometheus.CounterVec
	renderFailures     prometheus.Counter
	events             *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		quizzesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quizzes_started_total",
			Help:      "Quiz sessions started or restarted.",
		}),
		answersAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_accepted_total",
			Help:      "Answers recorded into a session.",
		}),
		invalidTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_transitions_total",
			Help:      "Answer events rejected by the session state machine.",
		}, []string{"reason"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Completed quizzes by resolved animal.",
		}, []string{"animal"}),
		noOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_outcomes_total",
			Help:      "Completed quizzes that produced no outcome.",
		}, []string{"reason"}),
		renderFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Result images that could not be generated.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_events_total",
			Help:      "Chat events handled by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) QuizStarted() {
	if m != nil {
		m.quizzesStarted.Inc()
	}
}

func (m *Metrics) AnswerAccepted() {
	if m != nil {
		m.answersAccepted.Inc()
	}
}

func (m *Metrics) InvalidTransition(reason string) {
	if m != nil {
		m.invalidTransitions.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Outcome(animal string) {
	if m != nil {
		m.outcomes.WithLabelValues(animal).Inc()
	}
}

func (m *Metrics) NoOutcome(reason string) {
	if m != nil {
		m.noOutcomes.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) RenderFailed() {
	if m != nil {
		m.renderFailures.Inc()
	}
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

// ObserveConnectedChats exports fn as a gauge of open websocket chats.
func (m *Metrics) ObserveConnectedChats(fn func() int) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connected_chats",
		Help:      "Websocket chats currently connected.",
	}, func() float64 { return float64(fn()) })
}
