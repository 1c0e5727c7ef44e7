package demo

import (
	"strconv"
	"strings"
)

// cheat pokes system RAM every frame. Codes look like "AA:VV" in hex,
// several joined with '+'.
type cheat struct {
	pokes []poke
}

type poke struct {
	addr  int
	value byte
}

func parseCheat(code string) (cheat, bool) {
	var ch cheat
	for _, part := range strings.Split(code, "+") {
		a, v, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return cheat{}, false
		}
		addr, err := strconv.ParseUint(a, 16, 8)
		if err != nil || addr >= systemRAMSize {
			return cheat{}, false
		}
		value, err := strconv.ParseUint(v, 16, 8)
		if err != nil {
			return cheat{}, false
		}
		ch.pokes = append(ch.pokes, poke{addr: int(addr), value: byte(value)})
	}
	return ch, len(ch.pokes) > 0
}

// ResetCheats removes every cheat.
func (c *Core) ResetCheats() {
	clear(c.cheats)
}

// SetCheat adds, replaces or disables the cheat at index. Malformed codes
// are ignored.
func (c *Core) SetCheat(index int, enabled bool, code string) {
	if c.cheats == nil {
		return
	}
	if !enabled {
		delete(c.cheats, index)
		return
	}
	if ch, ok := parseCheat(code); ok {
		c.cheats[index] = ch
	}
}

func (c *Core) applyCheats() {
	for _, ch := range c.cheats {
		for _, p := range ch.pokes {
			c.systemRAM[p.addr] = p.value
		}
	}
}
