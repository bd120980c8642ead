package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// BalancePage renders an explorer address page with one SATORI row.
func BalancePage(balance string) string {
	return fmt.Sprintf(`<html><body>
<h2>Address</h2>
<table>
  <tr><th>Asset</th><th>Balance</th></tr>
  <tr><td>EVR</td><td>1.00000000</td></tr>
  <tr><td><a href="/asset/SATORI">SATORI</a></td><td>%s</td></tr>
</table>
</body></html>`, balance)
}

// EmptyPage renders an explorer address page without a SATORI row.
func EmptyPage() string {
	return `<html><body>
<h2>Address</h2>
<table>
  <tr><th>Asset</th><th>Balance</th></tr>
  <tr><td>EVR</td><td>1.00000000</td></tr>
</table>
</body></html>`
}

// NewExplorerServer starts a fake explorer serving pages keyed by the
// address query parameter. Unknown addresses get EmptyPage.
func NewExplorerServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/address/address.php" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		page, ok := pages[r.URL.Query().Get("address")]
		if !ok {
			page = EmptyPage()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	return server
}
