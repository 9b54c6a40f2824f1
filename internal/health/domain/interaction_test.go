package domain

import "testing"

func TestClassifierIsHuman(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		item any
		want bool
	}{
		{
			name: "explicit human flag wins",
			item: map[string]any{"isHuman": true, "source": "webhook"},
			want: true,
		},
		{
			name: "explicit human false",
			item: map[string]any{"isHuman": false},
			want: false,
		},
		{
			name: "manual flag counts as human marker",
			item: map[string]any{"manual": true, "channel": "bot"},
			want: true,
		},
		{
			name: "automated flag",
			item: map[string]any{"isAutomated": true},
			want: false,
		},
		{
			name: "automated flag false means human",
			item: map[string]any{"automated": false, "source": "automação"},
			want: true,
		},
		{
			name: "keyword in actor type",
			item: map[string]any{"actorType": "Workflow Engine"},
			want: false,
		},
		{
			name: "keyword in pt-BR channel",
			item: map[string]any{"canal": "Automação de marketing"},
			want: false,
		},
		{
			name: "substring match",
			item: map[string]any{"source": "chatbot"},
			want: false,
		},
		{
			name: "plain human note",
			item: map[string]any{"actor": "Maria Silva", "channel": "telefone"},
			want: true,
		},
		{
			name: "no attribution defaults human",
			item: map[string]any{"text": "ligou para o cliente"},
			want: true,
		},
		{
			name: "non-object defaults human",
			item: "2024-01-02T10:00:00Z",
			want: true,
		},
		{
			name: "nil defaults human",
			item: nil,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsHuman(tt.item); got != tt.want {
				t.Errorf("IsHuman(%v) = %v, want %v", tt.item, got, tt.want)
			}
		})
	}
}

func TestClassifierCustomKeywords(t *testing.T) {
	c := NewClassifier([]string{"drip"})

	if c.IsHuman(map[string]any{"source": "Drip Campaign"}) {
		t.Error("custom keyword should mark item as automated")
	}
	// The custom set replaces the defaults entirely.
	if !c.IsHuman(map[string]any{"source": "webhook"}) {
		t.Error("default keyword should not apply when a custom set is given")
	}
}

func TestOwnedBy(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		userID string
		want   bool
	}{
		{"raw id", Record{"ownerId": "42"}, "42", true},
		{"user prefix", Record{"userId": "user42"}, "42", true},
		{"u prefix", Record{"agentId": "u42"}, "42", true},
		{"legacy alias", Record{"corretorId": "current-user"}, "42", true},
		{"snake case key", Record{"responsavel_id": "42"}, "42", true},
		{"other user", Record{"ownerId": "7"}, "42", false},
		{"no owner field", Record{"name": "x"}, "42", false},
		{"empty user id", Record{"ownerId": ""}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnedBy(tt.rec, tt.userID); got != tt.want {
				t.Errorf("OwnedBy(%v, %q) = %v, want %v", tt.rec, tt.userID, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"perdido", Record{"status": "Perdido"}, true},
		{"cancelado in stage", Record{"etapa": "negócio cancelado"}, true},
		{"fechado", Record{"situacao": "Fechado - ganho"}, true},
		{"active", Record{"status": "Em negociação"}, false},
		{"no status", Record{}, false},
		{"non-string status", Record{"status": 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTerminal(tt.rec); got != tt.want {
				t.Errorf("IsTerminal(%v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}
