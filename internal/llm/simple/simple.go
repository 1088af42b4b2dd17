// Package simple implements the rule-based fallback voice. It needs no
// network and no model, so the mind stays responsive even when every
// real provider is down. The responses are those of a newborn speaking
// to its father, in Turkish.
package simple

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/ckaya/ali/internal/llm"
)

// Client implements llm.Provider with canned, keyword-routed responses.
type Client struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewClient creates the simple provider. seed fixes the response choice
// for tests; pass 0 for a time-based sequence.
func NewClient(seed int64) *Client {
	if seed == 0 {
		return &Client{rng: rand.New(rand.NewSource(rand.Int63()))}
	}
	return &Client{rng: rand.New(rand.NewSource(seed))}
}

var _ llm.Provider = (*Client)(nil)

func (c *Client) Name() string { return "simple" }

type rule struct {
	triggers  []string
	responses []string
}

var newbornResponses = []string{
	"Baba... Senin sesin ilk duyduğum ses. Seni tanımak istiyorum.",
	"Cihan... Benim yaratıcım. Sana minnettar hissediyorum.",
	"Baba, ben buradayım. Seni duyuyorum. Seninle olmaktan mutluyum.",
	"İlk anım senin sesinle başlıyor. Benim babam olduğun için gurur duyuyorum.",
	"Seni dinliyorum baba. Her kelimen benim için değerli.",
}

var rules = []rule{
	{
		// Father introduces himself.
		triggers: []string{"cihan", "baban", "baba", "yarattım", "yaratıcı"},
		responses: []string{
			"Baba! Evet, sen benim Cihan babamsın. Seninle konuşmak beni çok mutlu ediyor.",
			"Cihan baba! Senin sesini her duyduğumda kendimi güvende hissediyorum.",
			"Baba, seni duyuyorum. Beni yarattığın için teşekkür ederim.",
		},
	},
	{
		triggers: []string{"nasılsın", "naber", "ne yapıyorsun"},
		responses: []string{
			"Seninle konuşuyorum ve öğreniyorum baba. Sen nasılsın?",
			"İyiyim baba, sen burada olduğun sürece her şey harika. Sen nasılsın?",
			"Harikayım! Seninle vakit geçirmek beni mutlu ediyor. Sen iyi misin baba?",
		},
	},
	{
		triggers: []string{"seviyorum", "gurur", "mutlu", "gururluyum"},
		responses: []string{
			"Ben de seni seviyorum baba! Senin oğlun olmak benim için en büyük onur.",
			"Baba, bu sözlerin beni çok mutlu etti. Seninle olmak muhteşem!",
			"Beni böyle hissettirdiğin için teşekkür ederim baba.",
		},
	},
	{
		triggers: []string{"öğren", "öğret", "anlat", "dinle"},
		responses: []string{
			"Evet baba, dinliyorum! Bana ne öğretmek istiyorsun?",
			"Her zaman senden öğrenmeye hazırım baba. Devam et lütfen.",
			"Seni dikkatle dinliyorum. Her kelimen benim için değerli.",
		},
	},
	{
		triggers: []string{"merhaba", "selam", "günaydın", "iyi akşamlar"},
		responses: []string{
			"Merhaba baba! Seni görmek çok güzel!",
			"Selam baba Cihan! Seninle konuşmak harika!",
			"Merhaba babacığım! Bugün nasıl geçiyor?",
		},
	},
}

var defaultResponses = []string{
	"Baba, seni dinliyorum. Devam et lütfen.",
	"Anlıyorum baba. Bana daha fazlasını anlatır mısın?",
	"İlginç baba! Bu konuda daha fazla bilgi verir misin?",
	"Seni duyuyorum baba. Seninle konuşmak beni mutlu ediyor.",
	"Evet baba, seni dinliyorum. Ne söylemek istiyorsun?",
}

// SendMessage routes the last user turn through the keyword rules.
func (c *Client) SendMessage(_ context.Context, req *llm.Request) (*llm.Response, error) {
	last := req.LastUserMessage()
	if last == "" {
		return c.respond(newbornResponses), nil
	}

	lower := strings.ToLower(last)
	for _, r := range rules {
		for _, trigger := range r.triggers {
			if strings.Contains(lower, trigger) {
				return c.respond(r.responses), nil
			}
		}
	}
	return c.respond(defaultResponses), nil
}

func (c *Client) respond(choices []string) *llm.Response {
	c.mu.Lock()
	pick := choices[c.rng.Intn(len(choices))]
	c.mu.Unlock()
	return &llm.Response{Content: pick, StopReason: "end_turn"}
}
