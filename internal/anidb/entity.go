package anidb

// TitleKind classifies a title variation from the catalogue dump
type TitleKind string

const (
	// TitleMain is the canonical title
	TitleMain TitleKind = "main"
	// TitleOfficial is the title used by official resources
	TitleOfficial TitleKind = "official"
	// TitleSynonym is an "also known as" title
	TitleSynonym TitleKind = "syn"
	// TitleShort is a shortened title
	TitleShort TitleKind = "short"
)

// ParseTitleKind maps a dump type attribute to a TitleKind
func ParseTitleKind(value string) (TitleKind, bool) {
	switch value {
	case "main":
		return TitleMain, true
	case "official":
		return TitleOfficial, true
	case "syn":
		return TitleSynonym, true
	case "short":
		return TitleShort, true
	default:
		return "", false
	}
}

// Anime is a catalogue entry parsed from the dump
type Anime struct {
	// ID of the anime in the AniDB database
	ID int32
	// Canonical title of the anime
	Title string
	// Non-canonical titles of the anime
	Variations []TitleVariation
}

// TitleVariation is a non-canonical title of a catalogue entry
type TitleVariation struct {
	Title string
	Lang  string
	Kind  TitleKind
}
