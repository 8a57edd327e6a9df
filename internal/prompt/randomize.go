package prompt

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/samber/lo"
)

var ErrEmptyCatalog = errors.New("style catalog is empty")

// DefaultStyles is the compiled-in catalog used when no external one is
// configured.
var DefaultStyles = []string{
	"Estilo Moderno Minimalista com tons neutros, iluminação suave e móveis contemporâneos.",
	"Estilo Industrial com paredes de tijolos aparentes, detalhes em metal preto e couro.",
	"Estilo Escandinavo, muita luz natural, madeira clara e ambiente aconchegante.",
	"Estilo Boho Chic com muitas plantas, texturas naturais, tapetes coloridos e clima relaxado.",
	"Estilo Luxo Contemporâneo com mármore, detalhes em dourado e móveis de alto padrão.",
	"Estilo Rústico Moderno fundindo madeira bruta com elementos de design limpo.",
	"Estilo Japandi, misturando o minimalismo japonês com a funcionalidade escandinava.",
}

// Randomizer picks styles uniformly from an immutable catalog.
type Randomizer struct {
	styles []string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomizer(i *do.Injector) (*Randomizer, error) {
	styles := do.MustInvokeNamed[[]string](i, "styles")
	return New(styles, rand.NewSource(time.Now().UTC().UnixNano()))
}

// New copies styles, dropping blank entries.
func New(styles []string, src rand.Source) (*Randomizer, error) {
	catalog := lo.FilterMap(styles, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Randomizer{styles: catalog, rnd: rand.New(src)}, nil
}

func (r *Randomizer) Pick() string {
	r.mu.Lock()
	idx := r.rnd.Intn(len(r.styles))
	r.mu.Unlock()
	return r.styles[idx]
}

func (r *Randomizer) Styles() []string {
	return append([]string(nil), r.styles...)
}
