// Command ardrone-shell is an interactive keyboard-piloted demo client
// for the ardrone package: arrow keys translate to piloting vectors,
// space toggles takeoff/land, and esc triggers the emergency latch.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/eiannone/keyboard"
	"github.com/urfave/cli/v3"

	ardrone "github.com/go-ardrone/drone2"
	"github.com/go-ardrone/drone2/internal/status"
	"github.com/go-ardrone/drone2/internal/tracing"
)

func main() {
	cmd := &cli.Command{
		Name:  "ardrone-shell",
		Usage: "interactive keyboard piloting demo for an AR.Drone 2.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Aliases: []string{"H"},
				Value:   "192.168.1.1",
				Sources: cli.EnvVars("ARDRONE_HOST"),
				Usage:   "drone IP address",
			},
			&cli.StringFlag{
				Name:    "status-addr",
				Value:   "",
				Sources: cli.EnvVars("ARDRONE_STATUS_ADDR"),
				Usage:   "listen address for the debug/metrics status server (disabled if empty)",
			},
			&cli.StringFlag{
				Name:    "otlp-endpoint",
				Value:   "",
				Sources: cli.EnvVars("ARDRONE_OTLP_ENDPOINT"),
				Usage:   "OTLP/HTTP collector endpoint for tracing spans (disabled if empty)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")

	if endpoint := cmd.String("otlp-endpoint"); endpoint != "" {
		shutdown, err := tracing.Init(ctx, endpoint, "ardrone-shell")
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown(ctx)
	}

	// NewDrone already builds and registers the AT, Navdata and Config
	// services every session needs; only the optional ones are added
	// here, wired against the drone's own AT service.
	drone := ardrone.NewDrone(host)
	control := ardrone.NewControlService(drone, drone.AT())
	video := ardrone.NewVideoService(drone, host, nil)

	drone.AddService(control)
	drone.AddService(video)

	if addr := cmd.String("status-addr"); addr != "" {
		srv := status.New(drone)
		go func() {
			if err := srv.ListenAndServe(addr); err != nil {
				log.Printf("status server stopped: %v", err)
			}
		}()
	}

	log.Printf("connecting to drone at %s", host)
	drone.ConnectContext(ctx)
	if drone.State() != ardrone.DroneConnected {
		return fmt.Errorf("failed to connect to drone at %s", host)
	}
	defer drone.Disconnect()
	log.Printf("connected")

	return pilotLoop(drone, control)
}

func pilotLoop(drone *ardrone.Drone, control *ardrone.ControlService) error {
	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("open keyboard: %w", err)
	}
	defer keyboard.Close()

	log.Printf("arrows to pilot, space to takeoff/land, esc for emergency, q to quit")

	flying := false
	for {
		drone.Update()

		char, key, err := keyboard.GetKey()
		if err != nil {
			return err
		}

		switch {
		case char == 'q':
			return nil
		case char == ' ':
			flying = !flying
			if flying {
				control.TakeOff()
			} else {
				control.Land()
			}
		case key == keyboard.KeyEsc:
			control.SetEmergency(true)
		case key == keyboard.KeyArrowUp:
			control.SetPiloting(0, 0.5, 0, 0)
		case key == keyboard.KeyArrowDown:
			control.SetPiloting(0, -0.5, 0, 0)
		case key == keyboard.KeyArrowLeft:
			control.SetPiloting(-0.5, 0, 0, 0)
		case key == keyboard.KeyArrowRight:
			control.SetPiloting(0.5, 0, 0, 0)
		default:
			control.SetPiloting(0, 0, 0, 0)
		}
	}
}

