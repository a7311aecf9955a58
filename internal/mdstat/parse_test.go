package mdstat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, text string, start bool) Snapshot {
	t.Helper()
	return parse(strings.NewReader(text), start)
}

// The same two-disk mirror as printed by the three kernel flavours:
// plain 2.2-era output, 2.2 with the readonly qualifier, and 2.4+ with
// the progress bar, spaced '=' and speed suffix on continuation lines.
func TestParseFormatVariants(t *testing.T) {
	variants := map[string]string{
		"md-0.90/2.2": `Personalities : [raid1]
read_ahead 1024 sectors
md0 : active raid1 sdb1[1] sda1[0] 195310144 blocks [2/2] [UU] resync=8% finish=2.3min
unused devices: <none>
`,
		"md-0.90/2.2-readonly": `Personalities : [raid1]
read_ahead 1024 sectors
md0 : active (read-only) raid1 sdb1[1] sda1[0] 195310144 blocks [2/2] [UU]
unused devices: <none>
`,
		"md-0.90/2.4": `Personalities : [raid1]
read_ahead 1024 sectors
md0 : active raid1 sdb1[1] sda1[0]
      195310144 blocks [2/2] [UU]
      [=>...................]  resync =  8.1% (15819968/195310144) finish=2.3min speed=10000K/sec
unused devices: <none>
`,
	}

	for name, text := range variants {
		t.Run(name, func(t *testing.T) {
			snap := parseString(t, text, false)
			require.Len(t, snap, 1)

			e := snap[0]
			assert.Equal(t, "md0", e.Devnm)
			assert.Equal(t, StateActive, e.State)
			assert.Equal(t, "raid1", e.Level)
			assert.Equal(t, 2, e.RaidDisks)
			assert.Equal(t, "UU", e.Pattern)
			assert.Equal(t, int64(195310144), e.Blocks)
			assert.Equal(t, []string{"sdb1", "sda1"}, e.Members)
		})
	}
}

func TestParseHeadersAndMalformedSkipped(t *testing.T) {
	snap := parseString(t, `Personalities : [raid1] [raid6]
read_ahead not set
mdX : active raid1 sda1[0]
device-mapper junk line
md : active
unused devices: <none>
`, false)
	assert.Empty(t, snap)
}

func TestParseInactiveArray(t *testing.T) {
	snap := parseString(t, "md1 : inactive sda1[0](S) sdb1[1]\n", false)
	require.Len(t, snap, 1)

	e := snap[0]
	assert.Equal(t, StateInactive, e.State)
	assert.Empty(t, e.Level, "inactive arrays report no personality")
	assert.Equal(t, []string{"sda1", "sdb1"}, e.Members)
	assert.Equal(t, 1, e.Spares)
}

func TestParseFailedMemberAndDegraded(t *testing.T) {
	snap := parseString(t, "md0 : active raid1 sdb1[1](F) sda1[0] 1000 blocks [2/1] [U_]\n", false)
	require.Len(t, snap, 1)

	e := snap[0]
	assert.Equal(t, []string{"sdb1", "sda1"}, e.Members)
	assert.Equal(t, 1, e.Failed)
	assert.Equal(t, 1, e.Degraded())
}

func TestParseMetadataVersion(t *testing.T) {
	snap := parseString(t, `md127 : active raid0 sda[0] sdb[1] 2000 blocks super external:imsm
md126 : active raid5 sda[0] sdb[1] 1000 blocks super external:/md127/0 [2/2] [UU]
md0 : active raid1 sda1[0] sdb1[1] 500 blocks super 1.2 [2/2] [UU]
`, false)
	require.Len(t, snap, 3)
	assert.Equal(t, "external:imsm", snap[0].MetadataVersion)
	assert.True(t, snap[0].IsExternal())
	assert.False(t, snap[0].IsSubarray())
	assert.True(t, snap[1].IsSubarray())
	assert.True(t, snap[1].IsContainerMember("md127"))
	assert.Equal(t, "1.2", snap[2].MetadataVersion)
	assert.False(t, snap[2].IsExternal())
}

func TestParseSuperAsLastToken(t *testing.T) {
	snap := parseString(t, "md0 : active raid1 sda1[0] 10 blocks super\n", false)
	require.Len(t, snap, 1)
	assert.Empty(t, snap[0].MetadataVersion)
}

func TestResyncPercentPrecedence(t *testing.T) {
	// the first resync-setting token wins; the stray 88% must not override
	snap := parseString(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks [2/2] [UU] resync=42.7% 88%\n", false)
	require.Len(t, snap, 1)

	e := snap[0]
	assert.Equal(t, SyncInProgress, e.Sync)
	assert.Equal(t, 42, e.SyncPercent)
	assert.Equal(t, OpResync, e.SyncKind)
}

func TestResyncSpacedEquals(t *testing.T) {
	snap := parseString(t, "md0 : active raid6 sda[0] sdb[1] sdc[2] 10 blocks [3/3] [UUU] check =  12.5% (100/800)\n", false)
	require.Len(t, snap, 1)

	e := snap[0]
	assert.Equal(t, SyncInProgress, e.Sync)
	assert.Equal(t, 12, e.SyncPercent)
	assert.Equal(t, OpCheck, e.SyncKind)
}

func TestResyncSentinels(t *testing.T) {
	cases := map[string]struct {
		token string
		sync  SyncProgress
		kind  SyncOp
	}{
		"delayed": {"resync=DELAYED", SyncDelayed, OpResync},
		"pending": {"resync=PENDING", SyncPending, OpResync},
		"remote":  {"recovery=REMOTE", SyncRemote, OpRecovery},
		"reshape": {"reshape=DELAYED", SyncDelayed, OpReshape},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			snap := parseString(t, "md0 : active raid1 sda1[0] 10 blocks [2/2] [U_] "+tc.token+"\n", false)
			require.Len(t, snap, 1)
			assert.Equal(t, tc.sync, snap[0].Sync)
			assert.Equal(t, tc.kind, snap[0].SyncKind)
			assert.Zero(t, snap[0].SyncPercent, "sentinels never set a numeric percent")
		})
	}
}

func TestBitmapStopsClassification(t *testing.T) {
	// everything after bitmap: is ignored, including tokens that would
	// otherwise set the disk count, pattern or members
	snap := parseString(t, "md0 : active raid1 sda1[0] sdb1[1] 10 blocks bitmap: 0/4 pages [4/4] [U__U] sdz9[9]\n", false)
	require.Len(t, snap, 1)

	e := snap[0]
	assert.Zero(t, e.RaidDisks)
	assert.Empty(t, e.Pattern)
	assert.Equal(t, []string{"sda1", "sdb1"}, e.Members)
}

func TestContinuationJoining(t *testing.T) {
	snap := parseString(t, "md0 : active raid1 sda1[0]\n      sdb1[1]\n\t10 blocks [2/2] [UU]\n", false)
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"sda1", "sdb1"}, snap[0].Members)
	assert.Equal(t, 2, snap[0].RaidDisks)
}

func TestUnderscoreDevnm(t *testing.T) {
	snap := parseString(t, "md_d0 : active raid1 sda1[0] 10 blocks\n", false)
	require.Len(t, snap, 1)
	assert.Equal(t, "md_d0", snap[0].Devnm)
}

const containerText = `md125 : active raid1 sda[0] sdb[1] 1000 blocks [2/2] [UU]
md126 : active raid1 sdc[0] sdd[1] 1000 blocks [2/2] [UU]
md127 : active raid0 md125[0] md126[1] 2000 blocks
`

func TestDependencyInsertion(t *testing.T) {
	// md127 references md125 and md126, so it is spliced in before the
	// earliest of them in natural order
	snap := parseString(t, containerText, false)
	require.Len(t, snap, 3)
	assert.Equal(t, "md127", snap[0].Devnm)
	assert.Equal(t, "md125", snap[1].Devnm)
	assert.Equal(t, "md126", snap[2].Devnm)
}

func TestStartOrderComponentsFirst(t *testing.T) {
	snap := parseString(t, containerText, true)
	require.Len(t, snap, 3)

	pos := map[string]int{}
	for i, e := range snap {
		pos[e.Devnm] = i
	}
	assert.Less(t, pos["md125"], pos["md127"])
	assert.Less(t, pos["md126"], pos["md127"])
}

func TestUnknownMemberIsLeafDevice(t *testing.T) {
	// md99 is not in the list, so it orders like any plain device
	snap := parseString(t, "md0 : active raid0 md99[0] sda[1] 10 blocks\n", false)
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"md99", "sda"}, snap[0].Members)
}
