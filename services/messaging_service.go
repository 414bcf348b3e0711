package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/notifications"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MessagingService struct {
	db       *gorm.DB
	notifier *notifications.Notifier
	log      *zap.Logger
}

func NewMessagingService(db *gorm.DB, notifier *notifications.Notifier, log *zap.Logger) *MessagingService {
	return &MessagingService{db: db, notifier: notifier, log: log}
}

func (s *MessagingService) Send(ctx context.Context, senderID, receiverID uuid.UUID, bookingID *uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content is required")
	}
	if senderID == receiverID {
		return nil, apperrors.NewValidationError("you cannot message yourself")
	}

	var sender, receiver models.User
	if err := s.db.WithContext(ctx).First(&sender, "id = ?", senderID).Error; err != nil {
		return nil, userLookupError(err, "sender")
	}
	if err := s.db.WithContext(ctx).First(&receiver, "id = ?", receiverID).Error; err != nil {
		return nil, userLookupError(err, "receiver")
	}

	if bookingID != nil {
		var booking models.Booking
		if err := s.db.WithContext(ctx).Preload("Worker").First(&booking, "id = ?", *bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewNotFoundError("booking not found")
			}
			return nil, apperrors.NewInternalError("failed to load booking", err)
		}
		participants := map[uuid.UUID]bool{booking.ClientID: true, booking.Worker.UserID: true}
		if !participants[senderID] || !participants[receiverID] {
			return nil, apperrors.NewAuthorizationError("both users must be participants of the booking")
		}
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		BookingID:  bookingID,
		Content:    content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to send message", err)
	}

	s.notifier.Emit(ctx, receiverID, models.NotificationMessage, "New Message",
		fmt.Sprintf("%s sent you a message.", sender.DisplayName()),
		fmt.Sprintf("/messages/with/%s/", senderID))

	return &message, nil
}

// Conversation returns the thread between userID and otherID, oldest first,
// and marks the messages addressed to userID as read.
func (s *MessagingService) Conversation(ctx context.Context, userID, otherID uuid.UUID) ([]models.Message, error) {
	var other models.User
	if err := s.db.WithContext(ctx).First(&other, "id = ?", otherID).Error; err != nil {
		return nil, userLookupError(err, "user")
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
			Order("created_at asc").
			Find(&messages).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, userID, false).
			Update("is_read", true).Error
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load conversation", err)
	}

	for i := range messages {
		if messages[i].ReceiverID == userID {
			messages[i].IsRead = true
		}
	}
	return messages, nil
}

type ConversationSummary struct {
	PartnerID     uuid.UUID `json:"partner_id"`
	PartnerName   string    `json:"partner_name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}

func (s *MessagingService) Conversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at desc").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load messages", err)
	}

	summaries := summarizeConversations(userID, messages)
	if len(summaries) == 0 {
		return summaries, nil
	}

	ids := make([]uuid.UUID, 0, len(summaries))
	for _, c := range summaries {
		ids = append(ids, c.PartnerID)
	}
	var partners []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&partners).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to load conversation partners", err)
	}
	names := make(map[uuid.UUID]string, len(partners))
	for _, p := range partners {
		names[p.ID] = p.DisplayName()
	}
	for i := range summaries {
		summaries[i].PartnerName = names[summaries[i].PartnerID]
	}
	return summaries, nil
}

// summarizeConversations groups messages by partner. The result is ordered
// by the most recent message.
func summarizeConversations(userID uuid.UUID, messages []models.Message) []ConversationSummary {
	byPartner := make(map[uuid.UUID]*ConversationSummary)
	for _, m := range messages {
		partner := m.ReceiverID
		if m.ReceiverID == userID {
			partner = m.SenderID
		}
		c, ok := byPartner[partner]
		if !ok {
			c = &ConversationSummary{PartnerID: partner}
			byPartner[partner] = c
		}
		if m.CreatedAt.After(c.LastMessageAt) || c.LastMessageAt.IsZero() {
			c.LastMessage = m.Content
			c.LastMessageAt = m.CreatedAt
		}
		if m.ReceiverID == userID && !m.IsRead {
			c.UnreadCount++
		}
	}

	out := make([]ConversationSummary, 0, len(byPartner))
	for _, c := range byPartner {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

func userLookupError(err error, who string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError(who + " not found")
	}
	return apperrors.NewInternalError("failed to load "+who, err)
}
