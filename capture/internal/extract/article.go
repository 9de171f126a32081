package extract

import (
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/capsync/event"
)

var articleTitleSelectors = []string{
	`h1`,
	`[data-testid="storyTitle"]`,
	`article h1`,
	`title`,
}

var articleContainers = []string{
	`article`,
	`[role="main"]`,
	`.postArticle-content`,
}

// articleExtractor captures long-form reading surfaces. Unlike the mail
// extractors it works on the container's HTML: the markup is sanitized, then
// converted to markdown so the emitted content keeps structure (headings,
// emphasis) without script or style noise.
type articleExtractor struct {
	sanitize *bluemonday.Policy
	md       *converter.Converter
}

func newArticleExtractor() articleExtractor {
	return articleExtractor{
		sanitize: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

func (articleExtractor) Kind() event.Kind { return event.KindArticle }

func (a articleExtractor) Extract(s Surface) (event.Snapshot, error) {
	title := firstText(s, articleTitleSelectors...)

	raw := firstHTML(s, articleContainers...)
	if raw == "" {
		return event.Snapshot{}, ErrNoCapture
	}

	content := a.render(raw)
	if utf8.RuneCountInString(content) <= minArticleBody {
		return event.Snapshot{}, ErrNoCapture
	}

	fields := map[string]string{
		event.FieldTitle:   title,
		event.FieldContent: truncate(content, bodyLimit),
	}
	return newSnapshot(event.KindArticle, s.URL(), fields), nil
}

// render sanitizes article HTML and converts it to markdown text. Conversion
// failure falls back to a plain-text strip so a malformed page still captures.
func (a articleExtractor) render(raw string) string {
	clean := a.sanitize.Sanitize(raw)
	md, err := a.md.ConvertString(clean)
	if err != nil {
		return CleanText(StripTags(clean))
	}
	return CleanText(md)
}
