package board

import "strings"

// Board describes a known MicroPython-capable device family.
type Board struct {
	Name string
	Chip string

	// NeedsDTRReset marks boards whose bootloader requires a DTR/RTS
	// toggle before the REPL answers.
	NeedsDTRReset bool
}

// usbID is a vendor/product pair in canonical lower-case 4-digit hex form.
type usbID struct {
	vid string
	pid string
}

// knownBoards maps USB identifiers to board descriptors. IDs cover the
// common MicroPython targets; CP210x and CH340 bridges map to generic ESP
// entries because the bridge hides the module behind it.
var knownBoards = map[usbID]Board{
	{"f055", "9800"}: {Name: "Pyboard v1.x", Chip: "STM32F405"},
	{"f055", "9801"}: {Name: "Pyboard (CDC+HID)", Chip: "STM32F405"},
	{"f055", "9802"}: {Name: "Pyboard D-series", Chip: "STM32F7"},
	{"2e8a", "0005"}: {Name: "Raspberry Pi Pico", Chip: "RP2040"},
	{"2e8a", "000a"}: {Name: "Raspberry Pi Pico (CDC)", Chip: "RP2040"},
	{"303a", "1001"}: {Name: "ESP32-S3 (native USB)", Chip: "ESP32-S3"},
	{"303a", "0002"}: {Name: "ESP32-S2 (native USB)", Chip: "ESP32-S2"},
	{"10c4", "ea60"}: {Name: "ESP32 DevKit (CP210x bridge)", Chip: "ESP32", NeedsDTRReset: true},
	{"1a86", "7523"}: {Name: "ESP8266/ESP32 (CH340 bridge)", Chip: "ESP8266", NeedsDTRReset: true},
	{"0403", "6001"}: {Name: "Generic FTDI serial board", Chip: "unknown"},
	{"239a", "80f4"}: {Name: "Adafruit Feather ESP32-S2", Chip: "ESP32-S2"},
	{"1209", "0d32"}: {Name: "ODrive-style STM32 board", Chip: "STM32"},
}

// Identify looks up the board for a USB vendor/product pair. The second
// return value is false for unrecognized hardware.
func Identify(vid, pid string) (Board, bool) {
	b, ok := knownBoards[usbID{canonical(vid), canonical(pid)}]
	return b, ok
}

func canonical(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.TrimPrefix(id, "0x")
	for len(id) < 4 {
		id = "0" + id
	}

	return id
}
