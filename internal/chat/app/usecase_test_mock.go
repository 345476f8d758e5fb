package app

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/logger"
)

func init() {
	logger.Log = logger.Initialize("chat_test", os.TempDir())
}

// MockMembershipRepository Mock MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

// ActiveConversations mock active conversation ids
func (m *MockMembershipRepository) ActiveConversations(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// IsActiveMember mock membership check
func (m *MockMembershipRepository) IsActiveMember(ctx context.Context, userID, conversationID string) (bool, error) {
	args := m.Called(ctx, userID, conversationID)
	return args.Bool(0), args.Error(1)
}

// ActiveMemberIDs mock active member ids
func (m *MockMembershipRepository) ActiveMemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// ActiveMembers mock active member rows
func (m *MockMembershipRepository) ActiveMembers(ctx context.Context, conversationID string) ([]domain.MemberInfo, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.MemberInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateConversation mock create conversation
func (m *MockMembershipRepository) CreateConversation(ctx context.Context, conv *domain.Conversation, memberIDs []string) error {
	args := m.Called(ctx, conv, memberIDs)
	return args.Error(0)
}

// FindConversation mock find conversation by id
func (m *MockMembershipRepository) FindConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindMembership mock find membership row
func (m *MockMembershipRepository) FindMembership(ctx context.Context, conversationID, userID string) (*domain.Membership, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddMember mock add member
func (m *MockMembershipRepository) AddMember(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error {
	args := m.Called(ctx, conversationID, userID, role)
	return args.Error(0)
}

// RemoveMember mock remove member
func (m *MockMembershipRepository) RemoveMember(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

// UpdateRole mock update role
func (m *MockMembershipRepository) UpdateRole(ctx context.Context, conversationID, userID string, role domain.ConversationRole) error {
	args := m.Called(ctx, conversationID, userID, role)
	return args.Error(0)
}

// SoftDeleteConversation mock soft delete conversation
func (m *MockMembershipRepository) SoftDeleteConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// CreateWithStatuses mock create message with status entries
func (m *MockMessageRepository) CreateWithStatuses(ctx context.Context, msg *domain.Message, recipientIDs []string) error {
	args := m.Called(ctx, msg, recipientIDs)
	return args.Error(0)
}

// FindByID mock find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindViewByID mock find assembled message view
func (m *MockMessageRepository) FindViewByID(ctx context.Context, messageID string) (*domain.MessageView, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.MessageView), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByConversation mock history page
func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID string, page, pageSize int) ([]domain.MessageView, error) {
	args := m.Called(ctx, conversationID, page, pageSize)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.MessageView), args.Error(1)
	}
	return nil, args.Error(1)
}

// LastMessage mock last message
func (m *MockMessageRepository) LastMessage(ctx context.Context, conversationID string) (*domain.MessageView, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.MessageView), args.Error(1)
	}
	return nil, args.Error(1)
}

// SoftDelete mock soft delete message
func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageID, senderID string) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

// UnreadCount mock unread count for one conversation
func (m *MockMessageRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

// UnreadCounts mock unread counts grouped by conversation
func (m *MockMessageRepository) UnreadCounts(ctx context.Context, userID string) ([]domain.ConversationUnread, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ConversationUnread), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockStatusRepository Mock StatusRepository
type MockStatusRepository struct {
	mock.Mock
}

// UpdateStatus mock guarded status transition
func (m *MockStatusRepository) UpdateStatus(ctx context.Context, messageID, userID string, status domain.DeliveryStatus) (*domain.DeliveryStatusEntry, error) {
	args := m.Called(ctx, messageID, userID, status)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.DeliveryStatusEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByMessage mock entries of a message
func (m *MockStatusRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.DeliveryStatusEntry, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.DeliveryStatusEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPresenceRepository Mock PresenceRepository
type MockPresenceRepository struct {
	mock.Mock
}

// IncrConnections mock connection register
func (m *MockPresenceRepository) IncrConnections(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// DecrConnections mock connection unregister
func (m *MockPresenceRepository) DecrConnections(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// Connections mock connection count
func (m *MockPresenceRepository) Connections(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// SetOverride mock override set
func (m *MockPresenceRepository) SetOverride(ctx context.Context, userID string, status domain.UserStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

// ClearOverride mock override clear
func (m *MockPresenceRepository) ClearOverride(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// Override mock override read
func (m *MockPresenceRepository) Override(ctx context.Context, userID string) (domain.UserStatus, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserStatus), args.Error(1)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindByID mock find user by id
func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateStatusSnapshot mock status snapshot write
func (m *MockUserRepository) UpdateStatusSnapshot(ctx context.Context, userID string, status domain.UserStatus, lastSeen time.Time) error {
	args := m.Called(ctx, userID, status, lastSeen)
	return args.Error(0)
}

// MockPubSub Mock PubSub backplane
type MockPubSub struct {
	mock.Mock
}

// Publish mock publisher
func (m *MockPubSub) Publish(ctx context.Context, channel string, env domain.Envelope) error {
	args := m.Called(ctx, channel, env)
	return args.Error(0)
}

// Subscribe mock subscriber
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(env domain.Envelope)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockEventJournal Mock EventJournal
type MockEventJournal struct {
	mock.Mock
}

// Append mock journal append
func (m *MockEventJournal) Append(ctx context.Context, conversationID string, event interface{}) error {
	args := m.Called(ctx, conversationID, event)
	return args.Error(0)
}
