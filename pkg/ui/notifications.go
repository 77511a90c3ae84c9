package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const appName = "Nalanda Downloader"

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name", appName, title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender shows a toast through PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier(%q).Show($toast)
	`, xmlEscape(title), xmlEscape(message), appName)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// Notifier sends end-of-run notifications to the desktop and mirrors them on
// the console
type Notifier struct {
	sender  NotificationSender
	console *Console
}

// NewNotifier picks a sender for the current platform. A disabled notifier
// only writes to the console.
func NewNotifier(console *Console, enabled bool) *Notifier {
	if !enabled {
		return &Notifier{console: console}
	}
	return NewNotifierWithSender(console, platformSender())
}

// NewNotifierWithSender uses the given sender; nil disables desktop delivery
func NewNotifierWithSender(console *Console, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, console: console}
}

func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// SendSuccess reports a finished run
func (n *Notifier) SendSuccess(title, message string) {
	if n.console != nil {
		n.console.Success("%s: %s", title, message)
	}
	n.send(title, message)
}

// SendError reports a failed or interrupted run
func (n *Notifier) SendError(title, message string) {
	if n.console != nil {
		n.console.Errorf("%s: %s", title, message)
	}
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
