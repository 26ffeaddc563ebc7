package internal

import (
	"fmt"
	"time"
)

// CreateTestMessages creates n alternating user/bot messages with remote ids
func CreateTestMessages(n int) []Message {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	messages := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		msg := Message{
			ID:         RemoteID(fmt.Sprint(i + 1)),
			Role:       RoleUser,
			Content:    fmt.Sprintf("Question %d?", i/2+1),
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i%2 == 1 {
			msg.Role = RoleBot
			msg.Content = fmt.Sprintf("Answer %d.", i/2+1)
		}
		messages = append(messages, msg)
	}
	return messages
}

// CreateTestErrorReply creates the reply a failed send leaves in the transcript
func CreateTestErrorReply(localID uint64) Message {
	return Message{
		ID:         LocalID(localID),
		Role:       RoleBot,
		Content:    ServerErrorReply,
		ReceivedAt: time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		IsError:    true,
	}
}

// CreateTestTranscript wraps n test messages for export
func CreateTestTranscript(n int) *Transcript {
	return &Transcript{
		SessionToken: "0b7d4c1e-6f2a-4a53-9d1c-2f8e5a7b9c10",
		APIBase:      DefaultAPIBase,
		ExportedAt:   time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Messages:     CreateTestMessages(n),
	}
}
