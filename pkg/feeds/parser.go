package feeds

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/r37344422-pixel/news/internal/domain"
	"github.com/r37344422-pixel/news/internal/logger"
	"github.com/r37344422-pixel/news/pkg/httpclient"
	"github.com/r37344422-pixel/news/pkg/sanitize"
)

var (
	// ErrUnknownFraming is returned when the payload is neither RSS nor Atom.
	ErrUnknownFraming = errors.New("feed is neither rss nor atom")
	// ErrEmptyItem marks an item with no title and no link; it has no usable identity.
	ErrEmptyItem = errors.New("item has neither title nor link")
)

// Parser turns raw feed bytes into canonical articles.
type Parser struct {
	sanitizer   *sanitize.Sanitizer
	placeholder string
	now         func() time.Time
	log         logger.Logger
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithSanitizer sets the summary sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) ParserOption {
	return func(p *Parser) {
		if s != nil {
			p.sanitizer = s
		}
	}
}

// WithPlaceholder sets the image used when no candidate is found.
func WithPlaceholder(placeholder string) ParserOption {
	return func(p *Parser) {
		if placeholder != "" {
			p.placeholder = placeholder
		}
	}
}

// WithClock sets the clock used for the date fallback.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the parser logger.
func WithLogger(log logger.Logger) ParserOption {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// NewParser builds a Parser with defaults for anything not overridden.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		sanitizer:   sanitize.New(sanitize.DefaultBudget),
		placeholder: DefaultPlaceholderImage,
		now:         time.Now,
		log:         logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse never fails: framing or XML errors are logged and yield no articles.
func (p *Parser) Parse(raw []byte, sourceName string) []domain.Article {
	articles, err := p.ParseFeed(raw, sourceName)
	if err != nil {
		p.log.WarnObj("feed parse failed", "feed_parse_error", map[string]any{
			"source": sourceName,
			"error":  err.Error(),
			"body":   httpclient.Snippet(raw),
		})
		return []domain.Article{}
	}
	return articles
}

// ParseFeed detects the framing and maps every item independently. A bad item is skipped.
func (p *Parser) ParseFeed(raw []byte, sourceName string) ([]domain.Article, error) {
	items, err := p.decode(raw)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(items))
	for idx, it := range items {
		art, err := p.buildArticle(it, sourceName)
		if err != nil {
			p.log.DebugObj("feed item skipped", "feed_item_skipped", map[string]any{
				"source": sourceName,
				"index":  idx,
				"error":  err.Error(),
			})
			continue
		}
		articles = append(articles, art)
	}
	return articles, nil
}

// decode returns the item list as dialect independent Items.
func (p *Parser) decode(raw []byte) (items []func() Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("decode feed: %v", r)
		}
	}()

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("decode feed: %w", ErrUnknownFraming)
	}

	switch gofeed.DetectFeedType(bytes.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		feed, err := (&rss.Parser{}).Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode rss: %w", err)
		}
		extra := scanRawFields(raw, KindRSS)
		for i, ri := range feed.Items {
			items = append(items, rssThunk(ri, rawAt(extra, i)))
		}
	case gofeed.FeedTypeAtom:
		feed, err := (&atom.Parser{}).Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode atom: %w", err)
		}
		extra := scanRawFields(raw, KindAtom)
		for i, ae := range feed.Entries {
			items = append(items, atomThunk(ae, rawAt(extra, i)))
		}
	default:
		return nil, ErrUnknownFraming
	}
	return items, nil
}

// Thunks defer variant mapping so a panic while reading one item only loses that item.
func rssThunk(ri *rss.Item, extra rawFields) func() Item {
	return func() Item {
		if ri == nil {
			panic("nil rss item")
		}
		it := fromRSS(ri)
		extra.apply(&it)
		return it
	}
}

func atomThunk(ae *atom.Entry, extra rawFields) func() Item {
	return func() Item {
		if ae == nil {
			panic("nil atom entry")
		}
		it := fromAtom(ae)
		extra.apply(&it)
		return it
	}
}

func rawAt(extra []rawFields, i int) rawFields {
	if i < len(extra) {
		return extra[i]
	}
	return rawFields{}
}

// buildArticle is the single constructor shared by every dialect.
func (p *Parser) buildArticle(next func() Item, sourceName string) (art domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			art, err = domain.Article{}, fmt.Errorf("build article: %v", r)
		}
	}()

	it := next()
	if it.Title == "" && it.Link == "" {
		return domain.Article{}, ErrEmptyItem
	}

	return domain.Article{
		ID:      Identity(it.Title, it.Link),
		Title:   it.Title,
		Link:    it.Link,
		PubDate: NormalizeDateWith(it.Date, p.now),
		Source:  sourceName,
		Image:   ExtractImage(it, p.placeholder),
		Summary: p.sanitizer.Sanitize(ExtractSummary(it)),
	}, nil
}
