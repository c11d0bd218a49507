// SPDX-License-Identifier: MIT

package bot

import (
	"fmt"

	"github.com/ersatzworld/smarthomebot/internal/gateway"
)

const (
	msgGreeting = "Hello, I am your home surveillance bot! \U0001F916\n\n" +
		"I will notify you when your webcams detect motion or loud noises " +
		"and send you a video of the incident."
	msgAlertsOn       = "Alerts on."
	msgAlertsOff      = "Alerts off."
	msgUnknownCommand = "Unknown command. Type /help for more info."
	msgNotTalkative   = "I'm not very talkative. Type /help for more info."
	msgIntervalUnset  = "Snapshot interval has not been configured yet."
	msgIntervalOff    = "Scheduled snapshots are disabled."
	msgChooseAction   = "Choose an action:"
	msgChooseCamera   = "Show snapshot from:"
	msgHelp           = "Available commands:\n\n" +
		"/help show this message\n" +
		"/enable /disable /toggle turn notifications on or off\n" +
		"/snapshot list the cameras that can deliver snapshots\n" +
		"/snapshot interval show the interval (secs) at which snapshots are fetched and delivered\n" +
		"/snapshot interval <secs> set the snapshot interval to <secs> seconds (0 to disable)\n" +
		"/start (re)start the bot\n"
)

// idleMessages is the filler pool for the idle event; purely cosmetic.
var idleMessages = []string{
	"So quiet out here ...",
	"*yawn*",
	"I'm bored.",
	"Chill, everything is fine here.",
	"Nothing going on ...",
	"Seems nobody's home.",
	"Hello-o!!!",
}

func msgToggled(on bool) string {
	if on {
		return "Alerts are now switched on."
	}
	return "Alerts are now switched off."
}

func msgIntervalSet(secs int) string {
	return fmt.Sprintf("Snapshot interval is set to %d seconds.", secs)
}

func msgIntervalCurrent(secs int) string {
	return fmt.Sprintf("Snapshot interval is currently set to %d seconds.", secs)
}

func msgNirvana(kind string) string {
	return fmt.Sprintf("Your '%s' landed in nirvana ...", kind)
}

func (m *Manager) mainMenuButtons() []gateway.Button {
	alertButton := gateway.Button{Text: "▶️ Alerts on", Data: "enable"}
	if m.alerts.IsEnabled() {
		alertButton = gateway.Button{Text: "⏹ Alerts off", Data: "disable"}
	}
	return []gateway.Button{
		{Text: "\U0001F4F7 Snapshot", Data: "snapshot"},
		alertButton,
	}
}

func (m *Manager) cameraMenuButtons() []gateway.Button {
	cams := m.registry.All()
	buttons := make([]gateway.Button, 0, len(cams))
	for _, c := range cams {
		buttons = append(buttons, gateway.Button{Text: c.Name, Data: c.ID})
	}
	return buttons
}
