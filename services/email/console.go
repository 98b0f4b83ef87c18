package emailsvc

import (
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/smancaringin/presensi/core"
)

// consoleService prints outgoing mail to stdout. Used in dev.
type consoleService struct {
	defaultFromEmail string
	subjPrefix       string
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) *consoleService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if msg.HasRecipients() && msg.HasContent() {
			svc.print(*msg)
		}
	}
}

func (svc consoleService) print(msg core.EmailMessage) {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", svc.defaultFromEmail)
	fmt.Fprintf(&b, "To: %s\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "CC: %s\n", joinAddresses(msg.Cc))
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", svc.subjPrefix+msg.Subject)
	b.WriteString(msg.Body)
	b.WriteString("\n")
	_, _ = os.Stdout.WriteString(b.String())
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
