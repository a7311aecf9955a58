package mdstat

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// The status file comes in three historical flavours differing in
// per-array decoration: bare (readonly) qualifiers, a resync progress
// bar on a continuation line, and a recovery-speed suffix. The token
// rules below tolerate all three without detecting which one is in play.
// Continuation lines start with whitespace and are joined into one
// logical line before tokenizing.

// maxDevnmLen bounds the device name token; longer first tokens are not
// array lines.
const maxDevnmLen = 31

// header lines that are never array entries
var skipWords = map[string]bool{
	"Personalities": true,
	"read_ahead":    true,
	"unused":        true,
}

// validDevnm reports whether w is a well-formed md device name: the md
// prefix followed by a digit or an underscore-escaped name.
func validDevnm(w string) bool {
	if !strings.HasPrefix(w, "md") || len(w) < 3 || len(w) > maxDevnmLen {
		return false
	}
	return isDigit(w[2]) || w[2] == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// leadingInt parses the leading decimal digits of s, 0 if there are none.
func leadingInt(s string) int {
	n := 0
	for i := 0; i < len(s) && isDigit(s[i]); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// lineState carries the per-line classifier state threaded through the
// token rules.
type lineState struct {
	ent    *ArrayStatus
	prior  Snapshot // entries already inserted, for dependency lookup
	toks   []string
	i      int  // current token index; rules may advance it to consume lookahead
	inDevs bool // between the personality (or "inactive") and "blocks"

	// insertAt is the earliest prior-snapshot position naming one of this
	// entry's md components, or -1 to append at the tail.
	insertAt int
}

// tokenRule is one (predicate, action) pair. Rules are evaluated
// top-to-bottom per token and the first match wins; apply returns false
// to stop classifying the rest of the line.
type tokenRule struct {
	match func(st *lineState, w string) bool
	apply func(st *lineState, w string) bool
}

var tokenRules = []tokenRule{
	// activation state
	{
		match: func(st *lineState, w string) bool { return w == "active" },
		apply: func(st *lineState, w string) bool {
			st.ent.State = StateActive
			return true
		},
	},
	{
		match: func(st *lineState, w string) bool { return w == "inactive" },
		apply: func(st *lineState, w string) bool {
			// inactive arrays list devices immediately, with no personality
			st.ent.State = StateInactive
			st.inDevs = true
			return true
		},
	},

	// A bitmap: token ends classification for the whole line. The page
	// counts that follow look like [n/m] tokens and would clobber
	// RaidDisks if parsing continued.
	{
		match: func(st *lineState, w string) bool { return w == "bitmap:" },
		apply: func(st *lineState, w string) bool { return false },
	},

	// The first plain word of an active array is the personality.
	// Parenthesized qualifiers like (read-only) never count.
	{
		match: func(st *lineState, w string) bool {
			return st.ent.State == StateActive && st.ent.Level == "" && w[0] != '('
		},
		apply: func(st *lineState, w string) bool {
			st.ent.Level = w
			st.inDevs = true
			return true
		},
	},

	// "blocks" closes the device region; the token before it is the size.
	{
		match: func(st *lineState, w string) bool { return st.inDevs && w == "blocks" },
		apply: func(st *lineState, w string) bool {
			st.inDevs = false
			if st.i > 0 {
				if n, err := strconv.ParseInt(st.toks[st.i-1], 10, 64); err == nil {
					st.ent.Blocks = n
				}
			}
			return true
		},
	},

	// device region: tokens with an [index] suffix are members
	{
		match: func(st *lineState, w string) bool { return st.inDevs },
		apply: func(st *lineState, w string) bool {
			st.classifyMember(w)
			return true
		},
	},

	// "super" consumes the following token as the metadata version
	{
		match: func(st *lineState, w string) bool {
			return w == "super" && st.i+1 < len(st.toks)
		},
		apply: func(st *lineState, w string) bool {
			st.i++
			st.ent.MetadataVersion = st.toks[st.i]
			return true
		},
	},

	// [n/m] raid disk count
	{
		match: func(st *lineState, w string) bool {
			return len(w) > 1 && w[0] == '[' && isDigit(w[1])
		},
		apply: func(st *lineState, w string) bool {
			st.ent.RaidDisks = leadingInt(w[1:])
			return true
		},
	},

	// [U_U] slot pattern, first occurrence only
	{
		match: func(st *lineState, w string) bool {
			return st.ent.Pattern == "" && len(w) > 1 && w[0] == '[' &&
				(w[1] == 'U' || w[1] == '_')
		},
		apply: func(st *lineState, w string) bool {
			st.ent.Pattern = strings.TrimSuffix(w[1:], "]")
			return true
		},
	},

	// resync=N% / reshape=N% (old format, no spaces around '=')
	{
		match: func(st *lineState, w string) bool {
			return st.ent.Sync == SyncNone && strings.HasPrefix(w, "re") &&
				strings.HasSuffix(w, "%") && strings.Contains(w, "=")
		},
		apply: func(st *lineState, w string) bool {
			eq := strings.IndexByte(w, '=')
			st.ent.Sync = SyncInProgress
			st.ent.SyncPercent = leadingInt(w[eq+1:])
			switch {
			case strings.HasPrefix(w, "resync"):
				st.ent.SyncKind = OpResync
			case strings.HasPrefix(w, "reshape"):
				st.ent.SyncKind = OpReshape
			default:
				st.ent.SyncKind = OpRecovery
			}
			return true
		},
	},

	// bare operation word, possibly carying a =DELAYED/=PENDING/=REMOTE
	// sentinel instead of a percentage
	{
		match: func(st *lineState, w string) bool {
			return st.ent.Sync == SyncNone && (w[0] == 'r' || w[0] == 'c')
		},
		apply: func(st *lineState, w string) bool {
			switch {
			case strings.HasPrefix(w, "resync"):
				st.ent.SyncKind = OpResync
			case strings.HasPrefix(w, "reshape"):
				st.ent.SyncKind = OpReshape
			case strings.HasPrefix(w, "recovery"):
				st.ent.SyncKind = OpRecovery
			case strings.HasPrefix(w, "check"):
				st.ent.SyncKind = OpCheck
			}
			switch {
			case strings.HasSuffix(w, "=DELAYED"):
				st.ent.Sync = SyncDelayed
			case strings.HasSuffix(w, "=PENDING"):
				st.ent.Sync = SyncPending
			case strings.HasSuffix(w, "=REMOTE"):
				st.ent.Sync = SyncRemote
			}
			return true
		},
	},

	// bare percentage (new format puts spaces around '=')
	{
		match: func(st *lineState, w string) bool {
			return st.ent.Sync == SyncNone && isDigit(w[0]) && strings.HasSuffix(w, "%")
		},
		apply: func(st *lineState, w string) bool {
			st.ent.Sync = SyncInProgress
			st.ent.SyncPercent = leadingInt(w)
			return true
		},
	},
}

// classifyMember handles one token inside the device region. Only tokens
// carrying an [index] marker are member devices; anything else (size
// numbers, qualifiers) is ignored. Member tokens naming another md
// device already in the snapshot move the insertion point so components
// stay ahead of the composites that reference them.
func (st *lineState) classifyMember(w string) {
	br := strings.IndexByte(w, '[')
	if br < 0 {
		return
	}
	name := w[:br]
	st.ent.Members = append(st.ent.Members, name)
	if strings.Contains(w[br:], "(F)") {
		st.ent.Failed++
	}
	if strings.Contains(w[br:], "(S)") {
		st.ent.Spares++
	}

	if !strings.HasPrefix(w, "md") {
		return
	}
	// Scan from the head up to the current marker so the earliest
	// qualifying position wins across multiple md members on one line.
	// Components declared later in the file are not searched for;
	// forward references stay unresolved.
	limit := st.insertAt
	if limit < 0 {
		limit = len(st.prior)
	}
	for j := 0; j < limit; j++ {
		if st.prior[j].Devnm == name {
			st.insertAt = j
			break
		}
	}
}

// buildEntry classifies one logical line. It returns nil for header
// lines and anything else that is not a well-formed array line; such
// lines are skipped, never errored. insertAt is the prior-snapshot
// index to splice the entry in front of, or -1 to append.
func buildEntry(toks []string, prior Snapshot) (ent *ArrayStatus, insertAt int) {
	if len(toks) == 0 || skipWords[toks[0]] || !validDevnm(toks[0]) {
		return nil, -1
	}

	st := &lineState{
		ent:      &ArrayStatus{Devnm: toks[0]},
		prior:    prior,
		toks:     toks,
		insertAt: -1,
	}
	for st.i = 1; st.i < len(toks); st.i++ {
		w := toks[st.i]
		for _, r := range tokenRules {
			if !r.match(st, w) {
				continue
			}
			if !r.apply(st, w) {
				return st.ent, st.insertAt
			}
			break
		}
	}
	return st.ent, st.insertAt
}

// parse reads the whole status stream and builds an ordered snapshot.
// With start set the final order is reversed so that component arrays
// come before the composites that contain them when started in sequence.
func parse(r io.Reader, start bool) Snapshot {
	snap := Snapshot{}
	for _, line := range logicalLines(r) {
		ent, insertAt := buildEntry(strings.Fields(line), snap)
		if ent == nil {
			continue
		}
		if insertAt >= 0 && insertAt < len(snap) {
			snap = append(snap, nil)
			copy(snap[insertAt+1:], snap[insertAt:])
			snap[insertAt] = ent
		} else {
			snap = append(snap, ent)
		}
	}
	if start {
		for i, j := 0, len(snap)-1; i < j; i, j = i+1, j-1 {
			snap[i], snap[j] = snap[j], snap[i]
		}
	}
	return snap
}

// logicalLines splits r into lines, folding continuation lines (leading
// whitespace) into their predecessor.
func logicalLines(r io.Reader) []string {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := sc.Text()
		if raw == "" {
			continue
		}
		if (raw[0] == ' ' || raw[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += " " + raw
			continue
		}
		lines = append(lines, raw)
	}
	return lines
}
