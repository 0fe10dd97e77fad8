// Package anidb parses AniDB titles dumps. The dump is an XML document with
// one <anime aid="N"> element per title, pre-sorted by id; entries are
// yielded lazily so a full dump never has to fit in memory.
package anidb

import (
	"encoding/xml"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Parser yields catalogue entries from a decompressed titles dump.
// Malformed entries are skipped with a log line; the stream continues with
// the next sibling and never fails the surrounding import.
type Parser struct {
	dec    *xml.Decoder
	closer io.Closer
	err    error
}

// NewParser returns a parser over the dump file at path
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &Parser{
		dec:    xml.NewDecoder(file),
		closer: file,
	}, nil
}

// NewReaderParser returns a parser over an already open dump
func NewReaderParser(r io.Reader) *Parser {
	return &Parser{dec: xml.NewDecoder(r)}
}

// Empty returns a parser that immediately terminates
func Empty() *Parser {
	return &Parser{dec: xml.NewDecoder(strings.NewReader(""))}
}

// Next returns the next catalogue entry or nil when the stream is exhausted
func (p *Parser) Next() *Anime {
	if p.dec == nil {
		return nil
	}

	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			p.close()
			return nil
		}
		if err != nil {
			// a broken document cannot be resynchronised, treat as end of stream
			log.Printf("anidb: dump is not valid xml: %v", err)
			p.err = err
			p.close()
			return nil
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "anime" {
			continue
		}

		anime, ok := p.parseEntry(&start)
		if !ok {
			continue
		}

		return anime
	}
}

// Err returns the first hard stream error, if any
func (p *Parser) Err() error {
	return p.err
}

// Close releases the underlying file
func (p *Parser) Close() error {
	if p.closer == nil {
		return nil
	}

	err := p.closer.Close()
	p.closer = nil
	return err
}

func (p *Parser) close() {
	if err := p.Close(); err != nil {
		log.Printf("anidb: failed to close dump: %v", err)
	}
}

// parseEntry consumes one <anime> subtree and builds an entry from it.
// A missing or malformed id drains and drops the whole subtree, and so does
// a missing main title; a malformed title drops only that variation.
func (p *Parser) parseEntry(start *xml.StartElement) (*Anime, bool) {
	builder := newBuilder()

	if err := builder.handleID(start); err != nil {
		log.Printf("anidb: failed to parse title entry: %v", err)
		p.skip()
		return nil, false
	}

	for {
		tok, err := p.dec.Token()
		if err != nil {
			log.Printf("anidb: dump ended inside entry: %v", err)
			return nil, false
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "title" {
				continue
			}
			if err := builder.handleTitleStart(&t); err != nil {
				log.Printf("anidb: failed to parse title tag for id %d: %v", builder.id, err)
				if err := p.dec.Skip(); err != nil {
					return nil, false
				}
			}
		case xml.CharData:
			if builder.isBuildingTitle() {
				builder.handleTitleText(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "title":
				if err := builder.handleTitleEnd(); err != nil {
					log.Printf("anidb: dropped title variation for id %d: %v", builder.id, err)
				}
			case "anime":
				anime, err := builder.build()
				if err != nil {
					log.Printf("anidb: not enough data for entry id %d: %v", builder.id, err)
					return nil, false
				}
				return anime, true
			}
		}
	}
}

// skip drains the rest of the current element subtree
func (p *Parser) skip() {
	if err := p.dec.Skip(); err != nil {
		log.Printf("anidb: failed to skip malformed entry: %v", err)
	}
}

// animeBuilder aggregates one catalogue entry from scanner events
type animeBuilder struct {
	id    int32
	hasID bool
	title string

	variations []TitleVariation
	current    *titleBuilder
}

// titleBuilder aggregates a single <title> element
type titleBuilder struct {
	text    strings.Builder
	lang    string
	kind    TitleKind
	badKind bool
}

func newBuilder() *animeBuilder {
	return &animeBuilder{}
}

func (b *animeBuilder) handleID(start *xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local != "aid" {
			continue
		}

		id, err := strconv.ParseInt(attr.Value, 10, 32)
		if err != nil {
			return errMalformedAttribute
		}

		b.id = int32(id)
		b.hasID = true
		return nil
	}

	return errMissingID
}

func (b *animeBuilder) handleTitleStart(start *xml.StartElement) error {
	if b.current != nil {
		return errUnexpectedState
	}

	tb := &titleBuilder{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "lang":
			tb.lang = attr.Value
		case "type":
			kind, ok := ParseTitleKind(attr.Value)
			if !ok {
				tb.badKind = true
				continue
			}
			tb.kind = kind
		}
	}

	b.current = tb
	return nil
}

func (b *animeBuilder) isBuildingTitle() bool {
	return b.current != nil
}

func (b *animeBuilder) handleTitleText(text string) {
	b.current.text.WriteString(text)
}

// handleTitleEnd finishes the current title variation. The first title of
// kind main becomes the canonical title; a variation with an unknown kind
// is dropped without affecting the enclosing entry.
func (b *animeBuilder) handleTitleEnd() error {
	tb := b.current
	b.current = nil

	if tb == nil {
		return errUnexpectedState
	}
	if tb.badKind || tb.kind == "" {
		return errUnknownTitleKind
	}

	title := strings.TrimSpace(tb.text.String())
	if title == "" {
		return errMalformedTitle
	}

	if tb.kind == TitleMain && b.title == "" {
		b.title = title
	}

	b.variations = append(b.variations, TitleVariation{
		Title: title,
		Lang:  tb.lang,
		Kind:  tb.kind,
	})

	return nil
}

func (b *animeBuilder) build() (*Anime, error) {
	if !b.hasID {
		return nil, errMissingID
	}
	if b.title == "" {
		return nil, errMissingTitle
	}

	return &Anime{
		ID:         b.id,
		Title:      b.title,
		Variations: b.variations,
	}, nil
}
