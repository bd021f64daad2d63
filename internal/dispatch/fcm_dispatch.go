package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

// FCMDispatcher posts notifications to an FCM HTTPv1 endpoint using a
// server key or oauth token.
type FCMDispatcher struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewFCMDispatcher(endpoint, key string) *FCMDispatcher {
	return &FCMDispatcher{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (f *FCMDispatcher) Push(userID string, n models.Notification) error {
	body := map[string]interface{}{
		"message": map[string]interface{}{
			"token": "", // resolved from user_id by the push gateway
			"data": map[string]interface{}{
				"user_id":  userID,
				"type":     n.Type,
				"ride_id":  n.RideID,
				"title":    n.Title,
				"message":  n.Message,
				"priority": string(n.Priority),
			},
		},
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequest("POST", f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fcm status %d", resp.StatusCode)
	}
	return nil
}
