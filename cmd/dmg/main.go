package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "dmg"
	app.Description = "A Game Boy emulator for the terminal"
	app.Usage = "dmg [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (.gb, .gz, .zip or .7z)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without the terminal front-end",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save a PNG of the screen every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory for snapshots (default: temp directory)",
		},
		cli.IntFlag{
			Name:  "snapshot-scale",
			Usage: "Upscale factor for snapshots",
			Value: 2,
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Battery save file (default: ROM path with .sav extension)",
		},
		cli.StringFlag{
			Name:  "wav",
			Usage: "Record audio to a WAV file",
		},
		cli.StringFlag{
			Name:  "link-listen",
			Usage: "Wait for a link cable peer on this address (host:port)",
		},
		cli.StringFlag{
			Name:  "link-dial",
			Usage: "Connect the link cable to a listening peer (ws://host:port/link)",
		},
		cli.BoolFlag{
			Name:  "link-log",
			Usage: "Log serial output as text instead of linking (for test ROMs)",
		},
		cli.StringFlag{
			Name:  "stats",
			Usage: "Serve runtime stats on this address (e.g. localhost:18066)",
		},
		cli.StringFlag{
			Name:  "trace",
			Usage: "Write an instruction trace to this file (- for stderr)",
		},
		cli.Uint64Flag{
			Name:  "trace-limit",
			Usage: "Stop tracing after N instructions (0 = no limit)",
		},
		cli.StringFlag{
			Name:  "dump-state",
			Usage: "Write a graphviz dump of the machine state here on exit or fault",
		},
		cli.StringFlag{
			Name:  "limiter",
			Usage: "Frame pacing: adaptive, ticker or none",
			Value: "adaptive",
		},
		cli.BoolFlag{
			Name:  "immediate-ei",
			Usage: "Enable interrupts immediately on EI instead of after the next instruction",
		},
		cli.BoolFlag{
			Name:  "frame-skip",
			Usage: "Draw every other frame",
		},
		cli.BoolFlag{
			Name:  "interlace",
			Usage: "Draw alternating lines on alternating frames",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator
	return app
}
