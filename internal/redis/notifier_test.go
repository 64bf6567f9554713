package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	redishandler "github.com/saxenaaman628/ranker/internal/redisHandler"
)

func TestHandleReportsPollKeys(t *testing.T) {
	log, _ := test.NewNullLogger()
	n := NewNotifier(nil, redishandler.PollIDFromKey, log)

	tests := []struct {
		payload string
		want    []string
	}{
		{"polls:ABC123", []string{"ABC123"}},
		{"polls:", nil},
		{"sessions:ABC123", nil},
	}
	for _, tt := range tests {
		var got []string
		n.handle(&redis.Message{Channel: "__keyevent@0__:expired", Payload: tt.payload}, func(id string) {
			got = append(got, id)
		})
		if len(got) != len(tt.want) || (len(got) == 1 && got[0] != tt.want[0]) {
			t.Errorf("handle(%q) reported %v, want %v", tt.payload, got, tt.want)
		}
	}
}

func TestEventName(t *testing.T) {
	if got := eventName("__keyevent@0__:expired"); got != "expired" {
		t.Errorf("eventName() = %q", got)
	}
	if got := eventName("del"); got != "del" {
		t.Errorf("eventName() = %q", got)
	}
}
