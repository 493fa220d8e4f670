// Package repotest provides in-memory repository implementations for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/database"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
)

var (
	errUnique      = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	errForeignKey  = &pq.Error{Code: "23503", Message: "violates foreign key constraint"}
	errInvalidText = &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}
)

// Tx runs fn directly with a nil transaction. The in-memory repositories
// ignore the transaction they are given.
type Tx struct {
	Err error
}

func (t *Tx) WithTx(ctx context.Context, fn database.TxFunc) error {
	if t.Err != nil {
		return t.Err
	}
	return fn(nil)
}

type Users struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	Err   error
	clock func() time.Time
}

var _ repository.UserRepository = (*Users)(nil)

func NewUsers() *Users {
	return &Users{byID: make(map[string]*model.User), clock: time.Now}
}

func (u *Users) WithTx(*sqlx.Tx) repository.UserRepository { return u }

func (u *Users) copyOf(user *model.User) *model.User {
	c := *user
	return &c
}

func (u *Users) FindByID(_ context.Context, id string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	if user, ok := u.byID[id]; ok {
		return u.copyOf(user), nil
	}
	return nil, nil
}

func (u *Users) FindByEmailAndRole(_ context.Context, email string, role model.Role) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	for _, user := range u.byID {
		if user.Email == email && user.Role == role {
			return u.copyOf(user), nil
		}
	}
	return nil, nil
}

func (u *Users) SearchByName(_ context.Context, name string, limit int) ([]model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	needle := strings.ToLower(name)
	result := []model.User{}
	for _, user := range u.byID {
		if strings.Contains(strings.ToLower(user.Name), needle) {
			result = append(result, *user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (u *Users) Create(_ context.Context, params model.CreateUserParams) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return nil, u.Err
	}
	for _, user := range u.byID {
		if user.Email == params.Email && user.Role == params.Role {
			return nil, errUnique
		}
	}
	now := u.clock()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.byID[user.ID] = user
	return u.copyOf(user), nil
}

func (u *Users) SetRefreshToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return u.Err
	}
	if user, ok := u.byID[id]; ok {
		user.RefreshTokenHash = &hash
		user.RefreshTokenExpiresAt = &expiresAt
	}
	return nil
}

func (u *Users) ClearRefreshToken(_ context.Context, hash string) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return 0, u.Err
	}
	var n int64
	for _, user := range u.byID {
		if user.RefreshTokenHash != nil && *user.RefreshTokenHash == hash {
			user.RefreshTokenHash = nil
			user.RefreshTokenExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (u *Users) ClearExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return 0, u.Err
	}
	var n int64
	for _, user := range u.byID {
		if user.RefreshTokenHash != nil && user.RefreshTokenExpiresAt != nil && user.RefreshTokenExpiresAt.Before(now) {
			user.RefreshTokenHash = nil
			user.RefreshTokenExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// Delete removes a user outright, for exercising "user vanished" paths.
func (u *Users) Delete(id string) {
	u.mu.Lock()
	delete(u.byID, id)
	u.mu.Unlock()
}

type Profiles struct {
	mu   sync.Mutex
	rows map[string]*model.Profile
	Err  error
}

var _ repository.ProfileRepository = (*Profiles)(nil)

func NewProfiles() *Profiles {
	return &Profiles{rows: make(map[string]*model.Profile)}
}

func (p *Profiles) WithTx(*sqlx.Tx) repository.ProfileRepository { return p }

func profileKey(role model.Role, userID string) string {
	return role.ProfileTable() + "/" + userID
}

func (p *Profiles) Create(_ context.Context, role model.Role, userID, contactEmail string) (*model.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	key := profileKey(role, userID)
	if _, ok := p.rows[key]; ok {
		return nil, errUnique
	}
	profile := &model.Profile{UserID: userID, ContactEmail: contactEmail, CreatedAt: time.Now()}
	p.rows[key] = profile
	c := *profile
	return &c, nil
}

func (p *Profiles) FindByUserID(_ context.Context, role model.Role, userID string) (*model.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if profile, ok := p.rows[profileKey(role, userID)]; ok {
		c := *profile
		return &c, nil
	}
	return nil, nil
}

type Conversations struct {
	mu     sync.Mutex
	byPair map[[2]string]*model.Conversation
	order  []*model.Conversation
	Err    error
}

var _ repository.ConversationRepository = (*Conversations)(nil)

func NewConversations() *Conversations {
	return &Conversations{byPair: make(map[[2]string]*model.Conversation)}
}

func (c *Conversations) GetOrCreate(_ context.Context, low, high string) (*model.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	key := [2]string{low, high}
	conv, ok := c.byPair[key]
	if !ok {
		conv = &model.Conversation{
			ID:         uuid.NewString(),
			MemberLow:  low,
			MemberHigh: high,
			CreatedAt:  time.Now(),
		}
		c.byPair[key] = conv
		c.order = append(c.order, conv)
	}
	cp := *conv
	return &cp, nil
}

func (c *Conversations) ListByMember(_ context.Context, userID string) ([]model.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	result := []model.Conversation{}
	for _, conv := range c.order {
		if conv.MemberLow == userID || conv.MemberHigh == userID {
			result = append(result, *conv)
		}
	}
	return result, nil
}

// Exists reports whether a conversation with id has been created.
func (c *Conversations) Exists(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.order {
		if conv.ID == id {
			return true
		}
	}
	return false
}

// Messages checks foreign keys against the Conversations it was built with.
type Messages struct {
	mu    sync.Mutex
	convs *Conversations
	rows  []model.Message
	seq   int64
	Err   error
}

var _ repository.MessageRepository = (*Messages)(nil)

func NewMessages(convs *Conversations) *Messages {
	return &Messages{convs: convs}
}

func (m *Messages) Create(_ context.Context, params model.CreateMessageParams) (*model.Message, error) {
	if m.convs != nil && !m.convs.Exists(params.ConversationID) {
		return nil, errForeignKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.seq++
	msg := model.Message{
		ID:             uuid.NewString(),
		ConversationID: params.ConversationID,
		Sender:         params.Sender,
		Text:           params.Text,
		CreatedAt:      time.Now(),
		Seq:            m.seq,
	}
	m.rows = append(m.rows, msg)
	return &msg, nil
}

func (m *Messages) ListByConversation(_ context.Context, conversationID string) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := []model.Message{}
	for _, msg := range m.rows {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	return result, nil
}

// Count returns the number of stored messages.
func (m *Messages) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Students reads the users and student profiles held by the fakes it wraps.
type Students struct {
	users    *Users
	profiles *Profiles
	Err      error
}

var _ repository.StudentRepository = (*Students)(nil)

func NewStudents(users *Users, profiles *Profiles) *Students {
	return &Students{users: users, profiles: profiles}
}

func (s *Students) SetSkills(_ context.Context, userID string, skills []string) (*model.Profile, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.profiles.mu.Lock()
	defer s.profiles.mu.Unlock()
	profile, ok := s.profiles.rows[profileKey(model.RoleStudent, userID)]
	if !ok {
		return nil, nil
	}
	profile.Skills = append([]string{}, skills...)
	c := *profile
	return &c, nil
}

func (s *Students) ListSkills(context.Context) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.profiles.mu.Lock()
	defer s.profiles.mu.Unlock()
	seen := make(map[string]bool)
	skills := []string{}
	for key, profile := range s.profiles.rows {
		if !strings.HasPrefix(key, model.RoleStudent.ProfileTable()+"/") {
			continue
		}
		for _, skill := range profile.Skills {
			if !seen[skill] {
				seen[skill] = true
				skills = append(skills, skill)
			}
		}
	}
	sort.Strings(skills)
	return skills, nil
}

func (s *Students) Search(_ context.Context, q repository.StudentSearch) ([]model.StudentMatch, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.profiles.mu.Lock()
	defer s.profiles.mu.Unlock()
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	needle := strings.ToLower(q.Name)
	matches := []model.StudentMatch{}
	for key, profile := range s.profiles.rows {
		if !strings.HasPrefix(key, model.RoleStudent.ProfileTable()+"/") || profile.UserID == q.ExcludeUserID {
			continue
		}
		user, ok := s.users.byID[profile.UserID]
		if !ok || !strings.Contains(strings.ToLower(user.Name), needle) || !containsAll(profile.Skills, q.Skills) {
			continue
		}
		matches = append(matches, model.StudentMatch{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Role:   user.Role,
			Skills: append(pq.StringArray{}, profile.Skills...),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].UserID < matches[j].UserID
	})
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Connections rejects malformed ids the way Postgres rejects a bad uuid
// literal, and checks foreign keys against users when built with one.
type Connections struct {
	mu    sync.Mutex
	users *Users
	rows  []*model.ConnectionRequest
	Err   error
}

var _ repository.ConnectionRepository = (*Connections)(nil)

func NewConnections(users *Users) *Connections {
	return &Connections{users: users}
}

func validUUID(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func (c *Connections) Create(ctx context.Context, senderID, receiverID string) (*model.ConnectionRequest, error) {
	if !validUUID(senderID, receiverID) {
		return nil, errInvalidText
	}
	if c.users != nil {
		for _, id := range []string{senderID, receiverID} {
			if user, _ := c.users.FindByID(ctx, id); user == nil {
				return nil, errForeignKey
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if c.between(senderID, receiverID) != nil {
		return nil, errUnique
	}
	now := time.Now()
	req := &model.ConnectionRequest{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.ConnectionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.rows = append(c.rows, req)
	cp := *req
	return &cp, nil
}

func (c *Connections) between(a, b string) *model.ConnectionRequest {
	for _, req := range c.rows {
		if (req.SenderID == a && req.ReceiverID == b) || (req.SenderID == b && req.ReceiverID == a) {
			return req
		}
	}
	return nil
}

func (c *Connections) FindByID(_ context.Context, id string) (*model.ConnectionRequest, error) {
	if !validUUID(id) {
		return nil, errInvalidText
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, req := range c.rows {
		if req.ID == id {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *Connections) FindBetween(_ context.Context, a, b string) (*model.ConnectionRequest, error) {
	if !validUUID(a, b) {
		return nil, errInvalidText
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if req := c.between(a, b); req != nil {
		cp := *req
		return &cp, nil
	}
	return nil, nil
}

func (c *Connections) ListByUser(_ context.Context, userID string) ([]model.ConnectionRequest, error) {
	if !validUUID(userID) {
		return nil, errInvalidText
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	result := []model.ConnectionRequest{}
	for _, req := range c.rows {
		if req.SenderID == userID || req.ReceiverID == userID {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (c *Connections) ListPendingFor(_ context.Context, receiverID string) ([]model.ConnectionRequest, error) {
	if !validUUID(receiverID) {
		return nil, errInvalidText
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	result := []model.ConnectionRequest{}
	for _, req := range c.rows {
		if req.ReceiverID == receiverID && req.Status == model.ConnectionPending {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (c *Connections) Accept(_ context.Context, id, receiverID string) (*model.ConnectionRequest, error) {
	if !validUUID(id, receiverID) {
		return nil, errInvalidText
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	for _, req := range c.rows {
		if req.ID == id && req.ReceiverID == receiverID && req.Status == model.ConnectionPending {
			req.Status = model.ConnectionAccepted
			req.UpdatedAt = time.Now()
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *Connections) Delete(_ context.Context, id string) (int64, error) {
	if !validUUID(id) {
		return 0, errInvalidText
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	for i, req := range c.rows {
		if req.ID == id {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *Connections) DeletePendingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	var n int64
	kept := c.rows[:0]
	for _, req := range c.rows {
		if req.Status == model.ConnectionPending && req.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, req)
	}
	c.rows = kept
	return n, nil
}

// Backdate moves a request's creation time, for exercising expiry.
func (c *Connections) Backdate(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, req := range c.rows {
		if req.ID == id {
			req.CreatedAt = at
		}
	}
}

// Count returns the number of stored requests.
func (c *Connections) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}
