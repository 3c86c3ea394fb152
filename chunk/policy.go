package chunk

import "github.com/rloweth/gorch/errs"

// DuplicatePolicy decides how an upsert resolves a timestamp collision.
// The chunk treats the value as opaque and consults ResolveDuplicate; the
// owning series picks the policy per write.
type DuplicatePolicy uint8

const (
	// DuplicateBlock rejects the incoming sample.
	DuplicateBlock DuplicatePolicy = iota + 1
	// DuplicateFirst keeps the incumbent value.
	DuplicateFirst
	// DuplicateLast replaces the incumbent with the incoming value.
	DuplicateLast
	// DuplicateMin keeps the smaller value.
	DuplicateMin
	// DuplicateMax keeps the larger value.
	DuplicateMax
	// DuplicateSum stores the sum of both values.
	DuplicateSum
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateBlock:
		return "Block"
	case DuplicateFirst:
		return "First"
	case DuplicateLast:
		return "Last"
	case DuplicateMin:
		return "Min"
	case DuplicateMax:
		return "Max"
	case DuplicateSum:
		return "Sum"
	default:
		return "Unknown"
	}
}

// ResolveDuplicate resolves a collision between the incumbent value already
// stored at a timestamp and an incoming value for the same timestamp. It is
// a pure function: it returns the value the chunk should store, or
// errs.ErrDuplicateRejected when the policy refuses the write. Unknown
// policies reject.
func ResolveDuplicate(policy DuplicatePolicy, incumbent, incoming float64) (float64, error) {
	switch policy {
	case DuplicateFirst:
		return incumbent, nil
	case DuplicateLast:
		return incoming, nil
	case DuplicateMin:
		if incoming < incumbent {
			return incoming, nil
		}
		return incumbent, nil
	case DuplicateMax:
		if incoming > incumbent {
			return incoming, nil
		}
		return incumbent, nil
	case DuplicateSum:
		return incumbent + incoming, nil
	default:
		return 0, errs.ErrDuplicateRejected
	}
}
