package domain

import "fmt"

// Transfer is one computed payer to payee payment.
type Transfer struct {
	PayerID string
	PayeeID string
	Amount  Cents
}

// Solution is the output of SolveSettlements.
type Solution struct {
	Transfers []Transfer

	// Unresolved holds balances the transfers could not clear. It is only
	// non-empty when the net results do not sum to zero within BalanceTolerance.
	Unresolved []NetResult
}

type remainingBalance struct {
	userID    string
	remaining Cents
	sign      Cents
	last      int
}

// SolveSettlements computes a minimal set of transfers that clears the given net
// results (positive = creditor, negative = debtor).
//
// Each step matches the largest remaining debtor with the largest remaining
// creditor and moves min(debt, credit) between them. Equal magnitudes are broken
// by ascending user id, so identical input always yields identical transfers.
// Every step clears at least one participant, giving at most N-1 transfers.
//
// A leftover of at most BalanceTolerance is folded into the participant's last
// transfer. Larger leftovers are reported in Solution.Unresolved.
func SolveSettlements(nets []NetResult) (*Solution, error) {
	seen := make(map[string]struct{}, len(nets))

	var debtors, creditors []*remainingBalance
	for _, n := range nets {
		if n.UserID == "" {
			return nil, fmt.Errorf("%w: empty user id", ErrInvalidNetResult)
		}
		if _, dup := seen[n.UserID]; dup {
			return nil, fmt.Errorf("%w: duplicate user %s", ErrInvalidNetResult, n.UserID)
		}
		seen[n.UserID] = struct{}{}

		switch {
		case n.Net < 0:
			debtors = append(debtors, &remainingBalance{userID: n.UserID, remaining: -n.Net, sign: -1, last: -1})
		case n.Net > 0:
			creditors = append(creditors, &remainingBalance{userID: n.UserID, remaining: n.Net, sign: 1, last: -1})
		}
	}

	sol := &Solution{Transfers: []Transfer{}}

	for {
		debtor := largestRemaining(debtors)
		creditor := largestRemaining(creditors)
		if debtor == nil || creditor == nil {
			break
		}

		amount := min(debtor.remaining, creditor.remaining)
		sol.Transfers = append(sol.Transfers, Transfer{
			PayerID: debtor.userID,
			PayeeID: creditor.userID,
			Amount:  amount,
		})

		debtor.remaining -= amount
		creditor.remaining -= amount
		debtor.last = len(sol.Transfers) - 1
		creditor.last = debtor.last
	}

	budget := BalanceTolerance
	for _, group := range [][]*remainingBalance{debtors, creditors} {
		for _, b := range group {
			if b.remaining == 0 {
				continue
			}

			if b.remaining <= budget {
				if b.last >= 0 {
					sol.Transfers[b.last].Amount += b.remaining
				}
				budget -= b.remaining
				continue
			}

			sol.Unresolved = append(sol.Unresolved, NetResult{UserID: b.userID, Net: b.sign * b.remaining})
		}
	}

	return sol, nil
}

func largestRemaining(balances []*remainingBalance) *remainingBalance {
	var best *remainingBalance
	for _, b := range balances {
		if b.remaining <= 0 {
			continue
		}
		if best == nil || b.remaining > best.remaining ||
			(b.remaining == best.remaining && b.userID < best.userID) {
			best = b
		}
	}
	return best
}
