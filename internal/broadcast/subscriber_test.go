package broadcast

import "testing"

func Test_seasonFromChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    int64
		wantErr bool
	}{
		{name: "Valid", channel: "auction_events:42", want: 42},
		{name: "WrongPrefix", channel: "bid_events:42", wantErr: true},
		{name: "NotANumber", channel: "auction_events:abc", wantErr: true},
		{name: "Empty", channel: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := seasonFromChannel(tt.channel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("seasonFromChannel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("seasonFromChannel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHub_SubscriberCount(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{ID: "c1", SeasonID: 7, Send: make(chan []byte, 1)}
	hub.register <- client

	// The run loop serializes registration and fan-out, so receiving the
	// broadcast proves the registration completed first.
	hub.Broadcast(7, []byte(`{"kind":"round_started"}`))
	payload := <-client.Send
	if string(payload) != `{"kind":"round_started"}` {
		t.Errorf("payload = %s", payload)
	}

	if got := hub.SubscriberCount(7); got != 1 {
		t.Errorf("SubscriberCount = %d, want 1", got)
	}
	if got := hub.SubscriberCount(8); got != 0 {
		t.Errorf("SubscriberCount(other) = %d, want 0", got)
	}
}
