package state

import "sync"

// session 单个用户的会话状态
type session struct {
	mu   sync.Mutex
	step string
	data map[string]string
}

// Store 按用户ID保存会话状态的内存存储。
// 状态只活在进程内，重启后丢失，流程可以重新发起。
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

// NewStore 创建一个新的状态存储
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*session)}
}

// get 获取或创建用户的会话
func (s *Store) get(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{data: make(map[string]string)}
		s.sessions[userID] = sess
	}
	return sess
}

// Acquire 获取用户级别的互斥锁，返回解锁函数。
// 步骤处理是先读后写，同一用户的更新必须串行执行。
func (s *Store) Acquire(userID int64) func() {
	sess := s.get(userID)
	sess.mu.Lock()
	return sess.mu.Unlock
}

// Step 返回用户当前等待的步骤，没有进行中的流程时返回空字符串
func (s *Store) Step(userID int64) string {
	return s.get(userID).step
}

// Begin 开始一个新流程：丢弃之前积累的数据并设置第一个步骤。
// 切换流程时旧流程的数据不允许泄漏到新流程。
func (s *Store) Begin(userID int64, step string) {
	sess := s.get(userID)
	sess.step = step
	sess.data = make(map[string]string)
}

// SetStep 在同一流程内推进到下一个步骤，保留积累的数据
func (s *Store) SetStep(userID int64, step string) {
	s.get(userID).step = step
}

// Set 写入流程数据
func (s *Store) Set(userID int64, key, value string) {
	s.get(userID).data[key] = value
}

// Get 读取流程数据，不存在时返回空字符串
func (s *Store) Get(userID int64, key string) string {
	return s.get(userID).data[key]
}

// Clear 清除用户的步骤和全部流程数据
func (s *Store) Clear(userID int64) {
	sess := s.get(userID)
	sess.step = ""
	sess.data = make(map[string]string)
}
