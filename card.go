package hifiberry

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// BoardKind names a supported board family.
type BoardKind string

const (
	BoardUnknown    BoardKind = ""
	BoardDACPlus    BoardKind = "dacplus"
	BoardDACPlusPro BoardKind = "dacpluspro"
	BoardDAC2HD     BoardKind = "dac2hd"
)

// ParseBoardKind validates a board name.
func ParseBoardKind(s string) (BoardKind, error) {
	switch k := BoardKind(strings.ToLower(strings.TrimSpace(s))); k {
	case BoardDACPlus, BoardDACPlusPro, BoardDAC2HD:
		return k, nil
	default:
		return BoardUnknown, fmt.Errorf("board %q: %w", s, ErrInvalidArgument)
	}
}

// SoundCardDevice represents a single PCM device on a sound card.
type SoundCardDevice struct {
	ID          int
	Name        string
	Description string
	IsPlayback  bool
}

// String returns a human-readable representation of the SoundCardDevice.
func (d SoundCardDevice) String() string {
	direction := "Capture"
	if d.IsPlayback {
		direction = "Playback"
	}

	return fmt.Sprintf("  Device %d: %s (%s) [%s]", d.ID, d.Name, d.Description, direction)
}

// SoundCard is a kernel sound card with its PCM devices.
type SoundCard struct {
	ID          int
	Name        string
	Description string
	Devices     []SoundCardDevice
}

// String returns a human-readable representation of the SoundCard.
func (c SoundCard) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Card %d: %s (%s)", c.ID, c.Name, c.Description)
	if k := c.Board(); k != BoardUnknown {
		fmt.Fprintf(&sb, " board=%s", k)
	}
	sb.WriteString("\n")

	for _, dev := range c.Devices {
		sb.WriteString(dev.String() + "\n")
	}

	return sb.String()
}

// Board maps the card to the board family whose kernel driver registered it.
// The DAC+ and DAC+ Pro share one driver and both report BoardDACPlus.
func (c SoundCard) Board() BoardKind {
	s := strings.ToLower(c.Name + " " + c.Description)
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)

	switch {
	case !strings.Contains(s, "hifiberry") && !strings.Contains(s, "sndrpihifiberry"):
		return BoardUnknown
	case strings.Contains(s, "dac2hd"):
		return BoardDAC2HD
	case strings.Contains(s, "dacplus"), strings.Contains(s, "dac+"):
		return BoardDACPlus
	default:
		return BoardUnknown
	}
}

var (
	cardRegex = regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(.*)`)
	// Lines like "02-00: Loopback PCM : Loopback PCM : playback 8 : capture 8".
	pcmRegex = regexp.MustCompile(`^(\d+)-(\d+): (.*?) :.*`)
)

// EnumerateCards scans /proc/asound for sound cards and their PCM devices.
func EnumerateCards() ([]SoundCard, error) {
	cardsFile := "/proc/asound/cards"
	cards, err := os.ReadFile(cardsFile)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", cardsFile, err)
	}

	pcmFile := "/proc/asound/pcm"
	pcm, err := os.ReadFile(pcmFile)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not read %s: %w", pcmFile, err)
	}

	return ParseCards(bytes.NewReader(cards), bytes.NewReader(pcm))
}

// ParseCards parses the contents of /proc/asound/cards and /proc/asound/pcm. pcm may be nil.
func ParseCards(cards, pcm io.Reader) ([]SoundCard, error) {
	cardMap := make(map[int]*SoundCard)

	scanner := bufio.NewScanner(cards)
	for scanner.Scan() {
		matches := cardRegex.FindStringSubmatch(scanner.Text())
		if len(matches) != 4 {
			continue
		}

		id, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		cardMap[id] = &SoundCard{
			ID:          id,
			Name:        strings.TrimSpace(matches[2]),
			Description: strings.TrimSpace(matches[3]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cards: %w", err)
	}

	if pcm != nil {
		scanner = bufio.NewScanner(pcm)
		for scanner.Scan() {
			line := scanner.Text()

			matches := pcmRegex.FindStringSubmatch(line)
			if len(matches) < 4 {
				continue
			}

			cardID, _ := strconv.Atoi(matches[1])
			devID, _ := strconv.Atoi(matches[2])

			card, ok := cardMap[cardID]
			if !ok {
				continue
			}

			description := strings.TrimSpace(matches[3])

			// One PCM device may carry both directions.
			if strings.Contains(line, "playback") {
				card.Devices = append(card.Devices, SoundCardDevice{
					ID:          devID,
					Name:        fmt.Sprintf("pcm%dp", devID),
					Description: description,
					IsPlayback:  true,
				})
			}

			if strings.Contains(line, "capture") {
				card.Devices = append(card.Devices, SoundCardDevice{
					ID:          devID,
					Name:        fmt.Sprintf("pcm%dc", devID),
					Description: description,
				})
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("pcm: %w", err)
		}
	}

	cardIDs := make([]int, 0, len(cardMap))
	for id := range cardMap {
		cardIDs = append(cardIDs, id)
	}

	sort.Ints(cardIDs)

	result := make([]SoundCard, 0, len(cardIDs))
	for _, id := range cardIDs {
		result = append(result, *cardMap[id])
	}

	return result, nil
}

// FindBoardCard returns the first card registered by a kernel driver for kind.
// DAC+ Pro boards match BoardDACPlus cards.
func FindBoardCard(cards []SoundCard, kind BoardKind) (SoundCard, bool) {
	if kind == BoardDACPlusPro {
		kind = BoardDACPlus
	}

	for _, c := range cards {
		if c.Board() == kind {
			return c, true
		}
	}

	return SoundCard{}, false
}
