package cascade

import "math"

// BlockSizeFunc computes the block size for a given pass/iteration, as a function of the
// estimated bit error rate and the key size.
type BlockSizeFunc func(estimatedBER float64, keySize int, iteration int) int

// Algorithm is a named bundle of reconciliation parameters: how many passes to run, how to
// size each pass's blocks, and whether/how BICONF, sub-block reuse and parity inference are
// enabled.
type Algorithm struct {
	Name string

	CascadeIterations int
	BlockSize         BlockSizeFunc

	BiconfIterations        int
	BiconfErrorFreeStreak   bool
	BiconfCorrectComplement bool
	BiconfCascade           bool

	SubBlockReuse        bool
	BlockParityInference bool
}

func clampBER(est float64) float64 {
	if est < 1e-5 {
		return 1e-5
	}
	return est
}

func ceilDiv(numerator float64, est float64) int {
	return int(math.Ceil(numerator / clampBER(est)))
}

func originalBlockSize(est float64, _ int, iteration int) int {
	base := ceilDiv(0.73, est)
	return base * pow2(iteration-1)
}

func biconfBlockSize(est float64, _ int, iteration int) int {
	base := ceilDiv(0.92, est)
	return base * pow3(iteration-1)
}

func yanetalBlockSize(est float64, keySize int, iteration int) int {
	first := ceilDiv(0.80, est)
	switch {
	case iteration == 1:
		return first
	case iteration == 2:
		return 5 * first
	default:
		return halfOrOne(keySize)
	}
}

func option3BlockSize(est float64, keySize int, iteration int) int {
	first := ceilDiv(1.0, est)
	switch {
	case iteration == 1:
		return first
	case iteration == 2:
		return 2 * first
	default:
		return halfOrOne(keySize)
	}
}

func option7BlockSize(est float64, keySize int, iteration int) int {
	first := pow2(int(math.Ceil(math.Log2(1 / clampBER(est)))))
	switch {
	case iteration == 1:
		return first
	case iteration == 2:
		return 4 * first
	default:
		return halfOrOne(keySize)
	}
}

func option8BlockSize(est float64, keySize int, iteration int) int {
	alpha := math.Log2(1/clampBER(est)) - 0.5
	switch {
	case iteration == 1:
		return pow2(int(math.Ceil(alpha)))
	case iteration == 2:
		return pow2(int(math.Ceil((alpha + 12) / 2)))
	case iteration == 3:
		return 4096
	default:
		return halfOrOne(keySize)
	}
}

func pow2(exp int) int {
	if exp < 0 {
		return 1
	}
	return 1 << uint(exp)
}

func pow3(exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= 3
	}
	return result
}

func halfOrOne(keySize int) int {
	half := keySize / 2
	if half < 1 {
		return 1
	}
	return half
}

// variantsByName is the compile-time enumeration of predefined Cascade variants. Variants
// are looked up by name rather than through a runtime registration API.
var variantsByName = map[string]Algorithm{
	"original": {
		Name:              "original",
		CascadeIterations: 4,
		BlockSize:         originalBlockSize,
	},
	"biconf": {
		Name:                    "biconf",
		CascadeIterations:       2,
		BlockSize:               biconfBlockSize,
		BiconfIterations:        10,
		BiconfErrorFreeStreak:   true,
		BiconfCorrectComplement: false,
		BiconfCascade:           false,
	},
	"yanetal": {
		Name:              "yanetal",
		CascadeIterations: 10,
		BlockSize:         yanetalBlockSize,
	},
	"option3": {
		Name:              "option3",
		CascadeIterations: 16,
		BlockSize:         option3BlockSize,
	},
	"option4": {
		Name:              "option4",
		CascadeIterations: 16,
		BlockSize:         option3BlockSize,
		SubBlockReuse:     true,
	},
	"option7": {
		Name:              "option7",
		CascadeIterations: 14,
		BlockSize:         option7BlockSize,
		SubBlockReuse:     true,
	},
	"option8": {
		Name:              "option8",
		CascadeIterations: 14,
		BlockSize:         option8BlockSize,
		SubBlockReuse:     true,
	},
}

// VariantByName looks up a predefined algorithm variant. An unknown name is a fatal
// configuration error.
func VariantByName(name string) (Algorithm, error) {
	algo, ok := variantsByName[name]
	if !ok {
		return Algorithm{}, namedErr(ErrUnknownVariant, name)
	}
	return algo, nil
}

// VariantNames returns the predefined variant names, for use by a CLI or listing command.
func VariantNames() []string {
	names := make([]string, 0, len(variantsByName))
	for name := range variantsByName {
		names = append(names, name)
	}
	return names
}

func namedErr(base error, name string) error {
	return &variantError{base: base, name: name}
}

type variantError struct {
	base error
	name string
}

func (e *variantError) Error() string {
	return e.base.Error() + ": " + e.name
}

func (e *variantError) Unwrap() error {
	return e.base
}
