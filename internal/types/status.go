package types

// CurrentStatus is the phase the rescue tool was in when it wrote the mapfile.
type CurrentStatus uint8

const (
	CurrentStatusCopyNonTried CurrentStatus = iota
	CurrentStatusTrimming
	CurrentStatusScraping
	CurrentStatusRetryBadSector
	CurrentStatusFilling
	CurrentStatusApproximate
	CurrentStatusFinished
)

var currentStatusChars = [...]byte{
	CurrentStatusCopyNonTried:   '?',
	CurrentStatusTrimming:       '*',
	CurrentStatusScraping:       '/',
	CurrentStatusRetryBadSector: '-',
	CurrentStatusFilling:        'F',
	CurrentStatusApproximate:    'G',
	CurrentStatusFinished:       '+',
}

var currentStatusNames = [...]string{
	CurrentStatusCopyNonTried:   "copy-non-tried",
	CurrentStatusTrimming:       "trimming",
	CurrentStatusScraping:       "scraping",
	CurrentStatusRetryBadSector: "retry-bad-sector",
	CurrentStatusFilling:        "filling",
	CurrentStatusApproximate:    "approximate",
	CurrentStatusFinished:       "finished",
}

// ParseCurrentStatus maps a mapfile status character to a CurrentStatus.
func ParseCurrentStatus(c byte) (CurrentStatus, bool) {
	switch c {
	case '?':
		return CurrentStatusCopyNonTried, true
	case '*':
		return CurrentStatusTrimming, true
	case '/':
		return CurrentStatusScraping, true
	case '-':
		return CurrentStatusRetryBadSector, true
	case 'F':
		return CurrentStatusFilling, true
	case 'G':
		return CurrentStatusApproximate, true
	case '+':
		return CurrentStatusFinished, true
	}
	return 0, false
}

// IsValid reports whether s is one of the defined statuses.
func (s CurrentStatus) IsValid() bool {
	return int(s) < len(currentStatusChars)
}

// Char returns the mapfile character for s, or 0 if s is not valid.
func (s CurrentStatus) Char() byte {
	if !s.IsValid() {
		return 0
	}
	return currentStatusChars[s]
}

func (s CurrentStatus) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return currentStatusNames[s]
}

// BlockStatus is the state a rescue left a block in.
type BlockStatus uint8

const (
	BlockStatusUntried BlockStatus = iota
	BlockStatusNonTrimmed
	BlockStatusNonScraped
	BlockStatusBadSector
	BlockStatusFinished
)

var blockStatusChars = [...]byte{
	BlockStatusUntried:    '?',
	BlockStatusNonTrimmed: '*',
	BlockStatusNonScraped: '/',
	BlockStatusBadSector:  '-',
	BlockStatusFinished:   '+',
}

var blockStatusNames = [...]string{
	BlockStatusUntried:    "untried",
	BlockStatusNonTrimmed: "non-trimmed",
	BlockStatusNonScraped: "non-scraped",
	BlockStatusBadSector:  "bad-sector",
	BlockStatusFinished:   "finished",
}

// ParseBlockStatus maps a mapfile status character to a BlockStatus.
func ParseBlockStatus(c byte) (BlockStatus, bool) {
	switch c {
	case '?':
		return BlockStatusUntried, true
	case '*':
		return BlockStatusNonTrimmed, true
	case '/':
		return BlockStatusNonScraped, true
	case '-':
		return BlockStatusBadSector, true
	case '+':
		return BlockStatusFinished, true
	}
	return 0, false
}

// IsValid reports whether s is one of the defined statuses.
func (s BlockStatus) IsValid() bool {
	return int(s) < len(blockStatusChars)
}

// IsBad reports whether the block holds unrecovered or unreliable bytes.
// Only finished blocks are fully recovered.
func (s BlockStatus) IsBad() bool {
	return s != BlockStatusFinished
}

// Char returns the mapfile character for s, or 0 if s is not valid.
func (s BlockStatus) Char() byte {
	if !s.IsValid() {
		return 0
	}
	return blockStatusChars[s]
}

func (s BlockStatus) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return blockStatusNames[s]
}
