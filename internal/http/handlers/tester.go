package handlers

import (
	_ "embed"
	"net/http"
)

//go:embed tester.html
var testerPage []byte

// HandleTester serves a static browser console for exercising the API by hand.
func HandleTester(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(testerPage)
}
