package aisession

import "strings"

// Mode selects the chat persona.
type Mode string

const (
	ModeMom       Mode = "mom"
	ModeDoctor    Mode = "doctor"
	ModeNutrition Mode = "nutrition"
)

// ModeInfo is the presentation of a mode.
type ModeInfo struct {
	ID     Mode   `json:"id"`
	Label  string `json:"label"`
	Accent string `json:"accent"`
	Bubble string `json:"bubble"`
	Intro  string `json:"intro"`
}

var modes = []ModeInfo{
	{
		ID:     ModeMom,
		Label:  "맘 AI",
		Accent: "#FDA8A9",
		Bubble: "#F8EAE7",
		Intro:  "육아하면서 혼자 고민하고 계신 게 있나요? 사소한 이야기라도 괜찮아요.\n\n육아지식, 경험, 감정적 고민, 일상적인 판단까지 육아와 관련된 무엇이든 맘 AI에게 물어보세요!",
	},
	{
		ID:     ModeDoctor,
		Label:  "닥터 AI",
		Accent: "#4D94CC",
		Bubble: "#D5E9F0",
		Intro:  "아이 몸 상태가 평소와 달라 보여 걱정되시나요?\n\n아이의 증상, 변화, 궁금한 점을 말씀해주시면 닥터 AI가 아이의 최근 상태를 고려하여 정확하고 차분히 안내해드릴게요!",
	},
	{
		ID:     ModeNutrition,
		Label:  "영양 AI",
		Accent: "#8DC849",
		Bubble: "#DEEFCF",
		Intro:  "아이의 식사와 영양 때문에 고민되는 점이 있나요?\n\n아이의 균형잡힌 식단과 간식, 수유와 이유식 추천까지 영양 AI가 아이의 최근 상태에 맞춰 함께 답변해드릴게요!",
	},
}

// Modes lists every mode in display order.
func Modes() []ModeInfo {
	return append([]ModeInfo(nil), modes...)
}

// LookupMode returns the mode named m, falling back to mom.
func LookupMode(m string) ModeInfo {
	m = strings.ToLower(strings.TrimSpace(m))
	for _, info := range modes {
		if string(info.ID) == m {
			return info
		}
	}
	return modes[0]
}

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Message is one chat bubble.
type Message struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Text       string `json:"text"`
	Background string `json:"background,omitempty"`
}

// Session is a cached chat thread.
type Session struct {
	ID              string    `json:"id"`
	Mode            Mode      `json:"mode"`
	Title           string    `json:"title"`
	QuestionSnippet string    `json:"question_snippet"`
	DateLabel       string    `json:"date_label"`
	KidID           *int64    `json:"kid_id,omitempty"`
	Messages        []Message `json:"messages"`
}

// Local reports whether the id was synthesized on this side.
func (s Session) Local() bool {
	return strings.HasPrefix(s.ID, localPrefix)
}

const localPrefix = "local-"
