package bot

import "sync"

// Mode режим диалога пользователя. Определяет, как трактуется следующий свободный текст.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAwaitingHabitName
	ModeAwaitingReminderTime
	ModeAwaitingBroadcastText
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAwaitingHabitName:
		return "awaiting_habit_name"
	case ModeAwaitingReminderTime:
		return "awaiting_reminder_time"
	case ModeAwaitingBroadcastText:
		return "awaiting_broadcast_text"
	default:
		return "unknown"
	}
}

type session struct {
	mu    sync.Mutex
	mode  Mode
	owner *Sessions
	key   string
	refs  int
}

// Sessions хранит режимы диалогов в памяти процесса. События одного пользователя
// обрабатываются под его блокировкой, разные пользователи не мешают друг другу.
// Запись пользователя удаляется, когда он вернулся в ModeIdle и никто не ждёт его блокировку.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions создаёт пустое хранилище сессий.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*session)}
}

// acquire возвращает заблокированную сессию пользователя. Вызывающий обязан вызвать release.
func (s *Sessions) acquire(userID string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{owner: s, key: userID}
		s.sessions[userID] = sess
	}
	sess.refs++
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

func (sess *session) release() {
	s := sess.owner
	s.mu.Lock()
	sess.refs--
	if sess.refs == 0 && sess.mode == ModeIdle {
		delete(s.sessions, sess.key)
	}
	s.mu.Unlock()
	sess.mu.Unlock()
}

// Mode возвращает текущий режим пользователя.
func (s *Sessions) Mode(userID string) Mode {
	sess := s.acquire(userID)
	defer sess.release()
	return sess.mode
}

func (s *Sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
