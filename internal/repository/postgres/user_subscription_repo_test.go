// internal/repository/postgres/user_subscription_repo_test.go
package postgres

import (
	"encoding/json"
	"testing"

	"bundl-service/internal/domain/catalog"
	"bundl-service/internal/domain/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStatuses() []subscription.Status {
	return []subscription.Status{
		subscription.StatusIntended,
		subscription.StatusActive,
		subscription.StatusPaused,
		subscription.StatusGracePeriod,
		subscription.StatusCancelled,
		subscription.StatusSuspended,
	}
}

// The SQL guards take their status lists from the domain; these lists must
// agree with the domain predicates or a concurrent-trigger loser could slip
// through the WHERE clause.
func TestStatusListsMatchDomainPredicates(t *testing.T) {
	eligible := map[subscription.Status]bool{}
	for _, s := range subscription.PullEligibleStatuses() {
		eligible[s] = true
	}
	revivable := map[subscription.Status]bool{}
	for _, s := range subscription.RevivableStatuses() {
		revivable[s] = true
	}

	for _, s := range allStatuses() {
		assert.Equal(t, s.PullEligible(), eligible[s], "pull eligibility for %s", s)
		assert.Equal(t, s.Terminal() || s == subscription.StatusIntended, revivable[s],
			"revivability for %s", s)
	}

	// Paused subscriptions are never billed, and active/grace must both be:
	// grace-period is exactly the recovering case the sweep exists for.
	assert.ElementsMatch(t,
		[]subscription.Status{subscription.StatusActive, subscription.StatusGracePeriod},
		subscription.BillableDueStatuses())
}

func TestStatusStrings(t *testing.T) {
	got := statusStrings(subscription.PullEligibleStatuses())
	assert.Equal(t, []string{"intended", "active", "grace-period"}, got)

	got = statusStrings(subscription.RevivableStatuses())
	assert.Equal(t, []string{"cancelled", "suspended", "intended"}, got)
}

// The containment guard must match the JSON the Invoice type actually encodes,
// else the billing claim stops blocking concurrent pulls.
func TestPendingInvoiceGuardMatchesInvoiceEncoding(t *testing.T) {
	assert.JSONEq(t, `[{"status":"pending"}]`, string(pendingInvoiceGuard()))

	doc, err := json.Marshal(subscription.Invoice{Status: subscription.InvoicePending})
	require.NoError(t, err)
	var invoice map[string]any
	require.NoError(t, json.Unmarshal(doc, &invoice))
	assert.Equal(t, "pending", invoice["status"])
}

func TestClaimGuardMatchesClaimedPackageEncoding(t *testing.T) {
	guard, err := claimGuard("pkg-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"package":{"id":"pkg-1"}}]`, string(guard))

	doc, err := json.Marshal(subscription.ClaimedPackage{
		Package: catalog.Package{ID: "pkg-1"},
	})
	require.NoError(t, err)
	var claimed map[string]any
	require.NoError(t, json.Unmarshal(doc, &claimed))
	pkg, ok := claimed["package"].(map[string]any)
	require.True(t, ok, "claimed package document nests the package under %q", "package")
	assert.Equal(t, "pkg-1", pkg["id"])
}
