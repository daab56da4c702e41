package classify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/chessmate-ai/chessmate/internal/filter"
)

// A rule pairs a pattern with an extractor writing into the spec. Rules are
// evaluated in table order and every match is applied, so for any given
// field the last matching rule in the table wins. That precedence is the
// table order itself, not pattern specificity; reordering a table changes
// behavior and is covered by tests.
type rule struct {
	re    *regexp.Regexp
	apply func(s *filter.Spec, caps []string)
}

// word compiles p wrapped in explicit word boundaries. RE2's \b is
// ASCII-only and never fires at Cyrillic letters, so boundaries are spelled
// out as "not a letter or digit".
func word(p string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\d])(?:` + p + `)(?:[^\p{L}\d]|$)`)
}

// captureStopwords are words a name capture must never be: they occupy the
// same grammatical slot as player names.
var captureStopwords = map[string]bool{
	"these": true, "those": true, "the": true, "my": true, "his": true,
	"her": true, "their": true, "all": true, "some": true, "more": true,
	"me": true, "us": true, "recent": true, "grandmaster": true, "gm": true,
	"decisive": true, "drawn": true, "rated": true, "titled": true,
	"white": true, "black": true, "elo": true, "rating": true,
	"won": true, "win": true, "wins": true, "lost": true, "player": true,
	"games": true, "game": true, "played": true, "pieces": true,
	"эти": true, "те": true, "все": true, "мои": true, "его": true,
	"их": true, "рейтинг": true, "белых": true, "черных": true, "чёрных": true,
	"выиграл": true, "выиграли": true, "фигурами": true,
}

func cleanName(raw string) string {
	name := strings.TrimSuffix(strings.TrimSpace(raw), "'s")
	if captureStopwords[strings.ToLower(name)] {
		return ""
	}
	return name
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// --- player rules ---

func assignAnyPlayer(s *filter.Spec, raw string) {
	if name := cleanName(raw); name != "" {
		s.AnyPlayer = name
	}
}

// assignAnyPlayerCapitalized backs the bare "<name> games" shape, which has
// no possessive marker to anchor it. Requiring a capitalized name keeps
// opening names and filler words out of the player slot.
func assignAnyPlayerCapitalized(s *filter.Spec, raw string) {
	r := []rune(strings.TrimSpace(raw))
	if len(r) == 0 || !unicode.IsUpper(r[0]) {
		return
	}
	assignAnyPlayer(s, raw)
}

var playerRules = []rule{
	{word(`games?\s+(?:of|by|with)\s+([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) { assignAnyPlayer(s, caps[1]) }},
	{word(`парти[ийюя]\s+([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) { assignAnyPlayer(s, caps[1]) }},
	{word(`([\p{L}][\p{L}'\-]+)(?:'s)?\s+(?:games|партии|игры)`),
		func(s *filter.Spec, caps []string) { assignAnyPlayerCapitalized(s, caps[1]) }},
	{word(`([\p{L}][\p{L}'\-]+)\s+(?:vs\.?|versus|against|против)\s+([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) {
			w, b := cleanName(caps[1]), cleanName(caps[2])
			if w != "" && b != "" {
				s.White, s.Black = w, b
				s.AnyPlayer = ""
			}
		}},
	{word(`white(?:\s+player)?\s+(?:is|was)?\s*([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) {
			if name := cleanName(caps[1]); name != "" {
				s.White = name
			}
		}},
	{word(`белыми\s+(?:играл\p{L}?\s+)?([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) {
			if name := cleanName(caps[1]); name != "" {
				s.White = name
			}
		}},
	{word(`black(?:\s+player)?\s+(?:is|was)?\s*([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) {
			if name := cleanName(caps[1]); name != "" {
				s.Black = name
			}
		}},
	{word(`ч[её]рными\s+(?:играл\p{L}?\s+)?([\p{L}][\p{L}'\-]+)`),
		func(s *filter.Spec, caps []string) {
			if name := cleanName(caps[1]); name != "" {
				s.Black = name
			}
		}},
	{word(`grandmasters?|grand\s+masters?|gm\s+games|гроссмейстер\p{L}*`),
		func(s *filter.Spec, _ []string) { s.Title = "GM" }},
}

// --- rating rules ---

var ratingRules = []rule{
	{word(`(?:(white|black|белыми|ч[её]рными)\s+)?(?:elo|rating|rated|рейтинг\p{L}*)\s+(?:above|over|higher\s+than|greater\s+than|at\s+least|выше|более|больше|не\s+ниже|от)\s+(\d{3,4})`),
		func(s *filter.Spec, caps []string) { applyEloMin(s, caps[1], atoi(caps[2])) }},
	{word(`(?:(white|black|белыми|ч[её]рными)\s+)?(?:elo|rating|rated|рейтинг\p{L}*)\s+(?:below|under|less\s+than|at\s+most|ниже|менее|меньше|до)\s+(\d{3,4})`),
		func(s *filter.Spec, caps []string) { applyEloMax(s, caps[1], atoi(caps[2])) }},
	{word(`(?:(white|black|белыми|ч[её]рными)\s+)?(?:elo|rating|rated|рейтинг\p{L}*)\s+(?:between|от)\s+(\d{3,4})\s+(?:and|to|до|и)\s+(\d{3,4})`),
		func(s *filter.Spec, caps []string) {
			applyEloMin(s, caps[1], atoi(caps[2]))
			applyEloMax(s, caps[1], atoi(caps[3]))
		}},
	{word(`(\d{4})\+`),
		func(s *filter.Spec, caps []string) { applyEloMin(s, "", atoi(caps[1])) }},
	{word(`(?:average|avg|средн\p{L}*)\s+(?:elo|rating|rated|рейтинг\p{L}*)\s+(?:above|over|at\s+least|выше|более|от)\s+(\d{3,4})`),
		func(s *filter.Spec, caps []string) { s.AvgRatingMin = filter.IntPtr(atoi(caps[1])) }},
	{word(`(?:average|avg|средн\p{L}*)\s+(?:elo|rating|rated|рейтинг\p{L}*)\s+(?:below|under|at\s+most|ниже|менее|до)\s+(\d{3,4})`),
		func(s *filter.Spec, caps []string) { s.AvgRatingMax = filter.IntPtr(atoi(caps[1])) }},
}

func applyEloMin(s *filter.Spec, side string, n int) {
	switch normalizeSide(side) {
	case "white":
		s.WhiteElo.Min = filter.IntPtr(n)
	case "black":
		s.BlackElo.Min = filter.IntPtr(n)
	default:
		s.WhiteElo.Min = filter.IntPtr(n)
		s.BlackElo.Min = filter.IntPtr(n)
	}
}

func applyEloMax(s *filter.Spec, side string, n int) {
	switch normalizeSide(side) {
	case "white":
		s.WhiteElo.Max = filter.IntPtr(n)
	case "black":
		s.BlackElo.Max = filter.IntPtr(n)
	default:
		s.WhiteElo.Max = filter.IntPtr(n)
		s.BlackElo.Max = filter.IntPtr(n)
	}
}

func normalizeSide(side string) string {
	switch strings.ToLower(side) {
	case "white", "белыми":
		return "white"
	case "black", "черными", "чёрными":
		return "black"
	}
	return ""
}

// --- date rules ---
// The contextual year rule runs first; the range rules run later and take
// over the date category when they match, clearing a year set from the same
// digits.

const yearPattern = `(1[5-9]\d{2}|20\d{2})`

var dateRules = []rule{
	{word(`(?:in|during|year|в|за)\s+` + yearPattern + `(?:\s*год[ау]?)?`),
		func(s *filter.Spec, caps []string) { s.Year = filter.IntPtr(atoi(caps[1])) }},
	{word(yearPattern + `\s+(?:games|партии)`),
		func(s *filter.Spec, caps []string) { s.Year = filter.IntPtr(atoi(caps[1])) }},
	{word(`(?:since|after|starting\s+from|начиная\s+с|после)\s+` + yearPattern),
		func(s *filter.Spec, caps []string) {
			s.Dates.From = yearStart(atoi(caps[1]))
			s.Year = nil
		}},
	{word(`(?:before|until|up\s+to|до)\s+` + yearPattern),
		func(s *filter.Spec, caps []string) {
			s.Dates.To = yearEnd(atoi(caps[1]) - 1)
			s.Year = nil
		}},
	{word(`(?:between|с)\s+` + yearPattern + `\s+(?:and|to|по|до)\s+` + yearPattern),
		func(s *filter.Spec, caps []string) {
			s.Dates.From = yearStart(atoi(caps[1]))
			s.Dates.To = yearEnd(atoi(caps[2]))
			s.Year = nil
		}},
}

// --- opening rules ---

// namedOpenings maps surface forms to canonical opening or variation names.
// Variations follow their parent openings in the table so a variation
// mention refines rather than being clobbered.
var namedOpenings = []struct {
	pattern   string
	opening   string
	variation string
}{
	{`sicilian|сицилианск\p{L}*`, "Sicilian Defense", ""},
	{`french\s+defen[cs]e|французск\p{L}*\s+защит\p{L}*`, "French Defense", ""},
	{`caro[\s-]?kann|каро[\s-]?канн`, "Caro-Kann Defense", ""},
	{`ruy\s+lopez|spanish\s+(?:game|opening)|испанск\p{L}*\s+парти\p{L}*`, "Ruy Lopez", ""},
	{`italian\s+game|итальянск\p{L}*\s+парти\p{L}*`, "Italian Game", ""},
	{`king'?s\s+indian|староиндийск\p{L}*`, "King's Indian Defense", ""},
	{`nimzo[\s-]?indian`, "Nimzo-Indian Defense", ""},
	{`queen'?s\s+gambit|ферзев\p{L}*\s+гамбит\p{L}*`, "Queen's Gambit", ""},
	{`gr[uü]nfeld|грюнфельд\p{L}*`, "Grunfeld Defense", ""},
	{`slav\s+defen[cs]e|славянск\p{L}*\s+защит\p{L}*`, "Slav Defense", ""},
	{`english\s+opening|английск\p{L}*\s+начал\p{L}*`, "English Opening", ""},
	{`catalan|каталонск\p{L}*`, "Catalan Opening", ""},
	{`petroff|russian\s+game|русск\p{L}*\s+парти\p{L}*`, "Petroff Defense", ""},
	{`scandinavian|скандинавск\p{L}*`, "Scandinavian Defense", ""},
	{`alekhine'?s?\s+defen[cs]e|защит\p{L}*\s+алехина`, "Alekhine Defense", ""},
	{`najdorf|найдорф\p{L}*`, "Sicilian Defense", "Najdorf"},
	{`dragon|дракон\p{L}*`, "Sicilian Defense", "Dragon"},
	{`sveshnikov|свешников\p{L}*`, "Sicilian Defense", "Sveshnikov"},
	{`berlin\s+(?:defen[cs]e|wall)|берлинск\p{L}*`, "Ruy Lopez", "Berlin"},
	{`exchange\s+variation|разменн\p{L}*\s+вариант\p{L}*`, "", "Exchange"},
}

var openingRules = buildOpeningRules()

func buildOpeningRules() []rule {
	rules := []rule{
		// Bare category letter behind an explicit ECO marker: prefix match
		// downstream. Listed before the full-code rule so that a full code
		// in the same utterance wins.
		{word(`eco\s+([a-e])`),
			func(s *filter.Spec, caps []string) { s.ECO = strings.ToUpper(caps[1]) }},
		// Full ECO code: exact match downstream.
		{word(`([a-e])\s?(\d{2})`),
			func(s *filter.Spec, caps []string) {
				s.ECO = strings.ToUpper(caps[1]) + caps[2]
			}},
	}
	for _, e := range namedOpenings {
		entry := e
		rules = append(rules, rule{
			re: word(entry.pattern),
			apply: func(s *filter.Spec, _ []string) {
				if entry.opening != "" {
					s.Opening = entry.opening
				}
				if entry.variation != "" {
					s.Variation = entry.variation
				}
			},
		})
	}
	return rules
}

// --- event rules ---

var namedEvents = []struct {
	pattern string
	event   string
}{
	{`world\s+championship|чемпионат\p{L}*\s+мира`, "World Championship"},
	{`candidates(?:\s+tournament)?|турнир\p{L}*\s+претендентов`, "Candidates"},
	{`olympiad|олимпиад\p{L}*`, "Olympiad"},
	{`wijk\s+aan\s+zee|tata\s+steel`, "Tata Steel"},
	{`norway\s+chess`, "Norway Chess"},
	{`linares`, "Linares"},
	{`sinquefield\s+cup`, "Sinquefield Cup"},
}

var namedSites = []struct {
	pattern string
	site    string
}{
	{`london|лондон\p{L}*`, "London"},
	{`moscow|москв\p{L}*`, "Moscow"},
	{`berlin(?:е)?`, "Berlin"},
	{`paris|париж\p{L}*`, "Paris"},
	{`baku|баку`, "Baku"},
	{`dubai|дуба[ей]`, "Dubai"},
	{`saint\s+louis|сент-луис\p{L}*`, "Saint Louis"},
}

var eventRules = buildEventRules()

func buildEventRules() []rule {
	var rules []rule
	for _, e := range namedEvents {
		entry := e
		rules = append(rules, rule{
			re:    word(entry.pattern),
			apply: func(s *filter.Spec, _ []string) { s.Event = entry.event },
		})
	}
	rules = append(rules,
		rule{word(`(?:tournament|event|турнир\p{L}*)\s+["«]([^"»]{2,40})["»]`),
			func(s *filter.Spec, caps []string) { s.Event = caps[1] }},
		rule{word(`category\s+(\d{1,2})`),
			func(s *filter.Spec, caps []string) { s.EventCategory = caps[1] }},
		rule{word(`(?:round|тур[ае]?)\s+(\d{1,2})`),
			func(s *filter.Spec, caps []string) { s.Round = caps[1] }},
	)
	for _, e := range namedSites {
		entry := e
		rules = append(rules, rule{
			re:    word(`(?:played\s+)?(?:in|at|в)\s+(?:` + entry.pattern + `)`),
			apply: func(s *filter.Spec, _ []string) { s.Site = entry.site },
		})
	}
	return rules
}

// --- outcome rules ---

var outcomeRules = []rule{
	{word(`(1-0|0-1|1/2-1/2)`),
		func(s *filter.Spec, caps []string) { s.Result = caps[1] }},
	{word(`white\s+(?:wins|won|victories)|победы?\s+белых|белые\s+выиграли|выигрыши\s+белых`),
		func(s *filter.Spec, _ []string) { s.Result = filter.ResultWhiteWins }},
	{word(`black\s+(?:wins|won|victories)|победы?\s+ч[её]рных|ч[её]рные\s+выиграли`),
		func(s *filter.Spec, _ []string) { s.Result = filter.ResultBlackWins }},
	{word(`draws?|drawn|ничь\p{L}*|вничью`),
		func(s *filter.Spec, _ []string) { s.Result = filter.ResultDraw }},
	{word(`decisive|no\s+draws|результативн\p{L}*|без\s+ничьих`),
		func(s *filter.Spec, _ []string) {
			s.DecisiveOnly = true
			// "no draws" also trips the draw rule above it.
			if s.Result == filter.ResultDraw {
				s.Result = ""
			}
		}},
}

// --- game length rules (moves in text, half-moves in the spec) ---

var lengthRules = []rule{
	{word(`(?:longer\s+than|more\s+than|over|at\s+least|длиннее|дольше|более)\s+(\d{1,3})\s+(?:moves|ходов)`),
		func(s *filter.Spec, caps []string) { s.MinPlies = filter.IntPtr(atoi(caps[1]) * 2) }},
	{word(`(?:shorter\s+than|under|fewer\s+than|less\s+than|at\s+most|короче|менее)\s+(\d{1,3})\s+(?:moves|ходов)`),
		func(s *filter.Spec, caps []string) { s.MaxPlies = filter.IntPtr(atoi(caps[1]) * 2) }},
	{word(`miniatures?|миниатюр\p{L}*`),
		func(s *filter.Spec, _ []string) { s.MaxPlies = filter.IntPtr(50) }},
}

// --- time control rules ---

var timeControls = map[string]string{
	"bullet": "bullet", "пуля": "bullet", "пули": "bullet",
	"blitz": "blitz", "rapid": "rapid", "рапид": "rapid",
	"быстрые": "rapid", "classical": "classical", "классика": "classical",
}

var timeControlRules = []rule{
	{word(`(bullet|blitz|rapid|classical|пул[яи]|блиц\p{L}*|рапид|быстрые|классик\p{L}*|классическ\p{L}*)`),
		func(s *filter.Spec, caps []string) {
			key := strings.ToLower(caps[1])
			switch {
			case timeControls[key] != "":
				s.TimeControl = timeControls[key]
			case strings.HasPrefix(key, "классич"), strings.HasPrefix(key, "классик"):
				s.TimeControl = "classical"
			case strings.HasPrefix(key, "блиц"):
				s.TimeControl = "blitz"
			}
		}},
}

// --- position rules ---

// fenPattern matches a free-standing FEN. It runs against the ORIGINAL text:
// piece letters carry color in their case, so folding would destroy the
// position.
var fenPattern = regexp.MustCompile(`[1-8pnbrqkPNBRQK]+(?:/[1-8pnbrqkPNBRQK]+){7}(?:\s+[wb]\s+(?:-|[KQkq]{1,4})\s+(?:-|[a-h][36])(?:\s+\d+\s+\d+)?)?`)

var phaseRules = []rule{
	{word(`opening\s+phase|in\s+the\s+opening|в\s+дебюте`),
		func(s *filter.Spec, _ []string) { s.Phase = filter.PhaseOpening }},
	{word(`middlegames?|миттельшпил\p{L}*`),
		func(s *filter.Spec, _ []string) { s.Phase = filter.PhaseMiddlegame }},
	{word(`endgames?|эндшпил\p{L}*`),
		func(s *filter.Spec, _ []string) { s.Phase = filter.PhaseEndgame }},
}

// --- pagination / sort rules ---

var controlRules = []rule{
	{word(`(?:top|first|первые)\s+(\d{1,3})`),
		func(s *filter.Spec, caps []string) { s.Limit = atoi(caps[1]) }},
	{word(`sort(?:ed)?\s+by\s+(date|rating|year|length)(\s+desc(?:ending)?)?`),
		func(s *filter.Spec, caps []string) {
			s.SortBy = strings.ToLower(caps[1])
			s.SortDesc = caps[2] != ""
		}},
}

// ruleTables is the full cascade in evaluation order. Within each table,
// later rules overwrite earlier assignments to the same field.
var ruleTables = [][]rule{
	playerRules,
	ratingRules,
	dateRules,
	openingRules,
	eventRules,
	outcomeRules,
	lengthRules,
	timeControlRules,
	phaseRules,
	controlRules,
}
