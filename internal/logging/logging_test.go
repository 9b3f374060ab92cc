package logging_test

import (
	"bytes"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markis/docqa/internal/logging"
)

var _ = Describe("New", func() {
	It("writes key/value pairs with the prefix", func() {
		var buf bytes.Buffer
		l := logging.New("info", &buf)
		l.Info("stream started", "session", "abc")

		Expect(buf.String()).To(ContainSubstring("docqa"))
		Expect(buf.String()).To(ContainSubstring("stream started"))
		Expect(buf.String()).To(ContainSubstring("session=abc"))
	})

	It("filters debug at info level", func() {
		var buf bytes.Buffer
		logging.New("info", &buf).Debug("hidden")
		Expect(buf.String()).To(BeEmpty())
	})

	It("enables debug", func() {
		var buf bytes.Buffer
		l := logging.New("debug", &buf)
		Expect(l.GetLevel()).To(Equal(log.DebugLevel))
		l.Debug("visible")
		Expect(buf.String()).To(ContainSubstring("visible"))
	})

	It("falls back to info for unknown levels", func() {
		Expect(logging.New("chatty", &bytes.Buffer{}).GetLevel()).To(Equal(log.InfoLevel))
	})
})
