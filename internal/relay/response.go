package relay

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Upstream queue states reported by the status endpoint.
const (
	QueueStatusInQueue    = "IN_QUEUE"
	QueueStatusInProgress = "IN_PROGRESS"
	QueueStatusCompleted  = "COMPLETED"
	QueueStatusFailed     = "FAILED"
	QueueStatusError      = "ERROR"
	QueueStatusCancelled  = "CANCELLED"
)

// imageURLs collects result URLs from the shapes relays are known to return:
// images as objects with url, images as bare strings, or a single image object.
func imageURLs(body []byte) []string {
	var urls []string
	gjson.GetBytes(body, "images").ForEach(func(_, item gjson.Result) bool {
		var u string
		if item.Type == gjson.String {
			u = item.String()
		} else {
			u = item.Get("url").String()
		}
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
		return true
	})
	if len(urls) == 0 {
		if u := strings.TrimSpace(gjson.GetBytes(body, "image.url").String()); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

type handleKind int

const (
	handleNone handleKind = iota
	handleURL
	handleRequestID
)

// pollHandle returns the polling handle carried by a submit response.
func pollHandle(body []byte) (string, handleKind) {
	for _, path := range []string{"status_url", "response_url"} {
		if v := strings.TrimSpace(gjson.GetBytes(body, path).String()); v != "" {
			return v, handleURL
		}
	}
	if v := strings.TrimSpace(gjson.GetBytes(body, "request_id").String()); v != "" {
		return v, handleRequestID
	}
	return "", handleNone
}

// pollState extracts the queue status and any failure message.
func pollState(body []byte) (string, string) {
	status := strings.ToUpper(strings.TrimSpace(gjson.GetBytes(body, "status").String()))
	return status, errorMessage(body)
}

func errorMessage(body []byte) string {
	for _, path := range []string{"error.message", "error", "detail.0.msg", "detail", "message"} {
		res := gjson.GetBytes(body, path)
		if !res.Exists() || res.IsObject() || res.IsArray() {
			continue
		}
		if msg := strings.TrimSpace(res.String()); msg != "" {
			return msg
		}
	}
	return ""
}

func isFailureStatus(status string) bool {
	switch status {
	case QueueStatusFailed, QueueStatusError, QueueStatusCancelled:
		return true
	default:
		return false
	}
}
