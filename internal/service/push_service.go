package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushService delivers notifications through Firebase Cloud Messaging.
type PushService struct {
	client *messaging.Client
}

// NewPushService returns nil when Firebase is not configured or fails to start.
func NewPushService(serviceAccountPath string) *PushService {
	if serviceAccountPath == "" {
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		log.Printf("[push] firebase app: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("[push] messaging client: %v", err)
		return nil
	}
	return &PushService{client: client}
}

// Send pushes a notification to one device token. FCM requires string data values.
func (s *PushService) Send(ctx context.Context, token, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || token == "" {
		return nil
	}
	payload := map[string]string{"type": notifType}
	for k, v := range data {
		switch val := v.(type) {
		case string:
			payload[k] = val
		case uint, int, int64:
			payload[k] = fmt.Sprintf("%d", val)
		default:
			b, _ := json.Marshal(v)
			payload[k] = string(b)
		}
	}
	_, err := s.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         payload,
		Android:      &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		log.Printf("[push] send %s: %v", notifType, err)
	}
	return err
}
