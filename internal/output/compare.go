package output

// Compare is a partial order over Values. ok is false when the operands are
// incomparable, which is a normal result and not an error.
//
// Numbers use float ordering. Vectors must have equal length and every
// element must order the same way; no elements means incomparable. An
// Outcome orders against any scalar through a fixed table (Greater above,
// Less below, everything else equal) and Compare(scalar, outcome) is the
// reverse of Compare(outcome, scalar). Any other pairing is incomparable.
func Compare(a, b Value) (Ordering, bool) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return compareFloat(a.num, b.num)

	case a.kind == KindNumberVector && b.kind == KindNumberVector:
		if len(a.nums) != len(b.nums) {
			return 0, false
		}
		return aggregate(len(a.nums), func(i int) (Ordering, bool) {
			return compareFloat(a.nums[i], b.nums[i])
		})

	case a.kind == KindOutcome && b.kind == KindNumber:
		return a.outcome.CompareScalar(b.num)

	case a.kind == KindNumber && b.kind == KindOutcome:
		o, ok := b.outcome.CompareScalar(a.num)
		return o.Reverse(), ok

	case a.kind == KindOutcomeVector && b.kind == KindNumberVector:
		if len(a.outcomes) != len(b.nums) {
			return 0, false
		}
		return aggregate(len(a.outcomes), func(i int) (Ordering, bool) {
			return a.outcomes[i].CompareScalar(b.nums[i])
		})

	case a.kind == KindNumberVector && b.kind == KindOutcomeVector:
		if len(a.nums) != len(b.outcomes) {
			return 0, false
		}
		return aggregate(len(a.nums), func(i int) (Ordering, bool) {
			o, ok := b.outcomes[i].CompareScalar(a.nums[i])
			return o.Reverse(), ok
		})
	}
	return 0, false
}

// Equals is structural equality within a kind. Across kinds only a Number
// against an Outcome, and a NumberVector against an OutcomeVector of the same
// non-zero length, can be equal, using the sentinel equality table.
func Equals(a, b Value) bool {
	return equals(a, b, 0)
}

func equals(a, b Value, depth int) bool {
	if depth > MaxDepth {
		return false
	}
	switch {
	case a.kind == KindNumber && b.kind == KindOutcome:
		return b.outcome.EqualsScalar(a.num)
	case a.kind == KindOutcome && b.kind == KindNumber:
		return a.outcome.EqualsScalar(b.num)
	case a.kind == KindNumberVector && b.kind == KindOutcomeVector:
		return vectorEqualsOutcomes(a.nums, b.outcomes)
	case a.kind == KindOutcomeVector && b.kind == KindNumberVector:
		return vectorEqualsOutcomes(b.nums, a.outcomes)
	case a.kind != b.kind:
		return false
	}

	switch a.kind {
	case KindNumber:
		return a.num == b.num
	case KindNumberVector:
		if len(a.nums) != len(b.nums) {
			return false
		}
		for i := range a.nums {
			if a.nums[i] != b.nums[i] {
				return false
			}
		}
		return true
	case KindOutcome:
		return a.outcome == b.outcome
	case KindOutcomeVector:
		if len(a.outcomes) != len(b.outcomes) {
			return false
		}
		for i := range a.outcomes {
			if a.outcomes[i] != b.outcomes[i] {
				return false
			}
		}
		return true
	case KindComposite:
		if len(a.children) != len(b.children) {
			return false
		}
		for i := range a.children {
			if !equals(a.children[i], b.children[i], depth+1) {
				return false
			}
		}
		return true
	}
	// Field references carry no payload.
	return true
}

// CheckLength errors when two vector values differ in length. It is for call
// sites that cannot treat a mismatch as merely incomparable.
func CheckLength(a, b Value) error {
	la, ok := vectorLen(a)
	if !ok {
		return &TypeMismatchError{Expected: "vector", Actual: a.kind.String()}
	}
	lb, ok := vectorLen(b)
	if !ok {
		return &TypeMismatchError{Expected: "vector", Actual: b.kind.String()}
	}
	if la != lb {
		return &LengthMismatchError{Left: la, Right: lb}
	}
	return nil
}

func vectorLen(v Value) (int, bool) {
	switch v.kind {
	case KindNumberVector:
		return len(v.nums), true
	case KindOutcomeVector:
		return len(v.outcomes), true
	}
	return 0, false
}

func vectorEqualsOutcomes(nums []float64, outs []Outcome) bool {
	if len(nums) != len(outs) || len(nums) == 0 {
		return false
	}
	for i := range nums {
		if !outs[i].EqualsScalar(nums[i]) {
			return false
		}
	}
	return true
}

func compareFloat(a, b float64) (Ordering, bool) {
	switch {
	case a < b:
		return Less, true
	case a > b:
		return Greater, true
	case a == b:
		return Equal, true
	}
	// NaN on either side.
	return 0, false
}

// aggregate folds n element orderings: all must be present and identical.
func aggregate(n int, at func(i int) (Ordering, bool)) (Ordering, bool) {
	if n == 0 {
		return 0, false
	}
	first, ok := at(0)
	if !ok {
		return 0, false
	}
	for i := 1; i < n; i++ {
		o, ok := at(i)
		if !ok || o != first {
			return 0, false
		}
	}
	return first, true
}
