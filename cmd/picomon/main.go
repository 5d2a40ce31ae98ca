package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/robotalks/picoboot.go/pkg/framework"
	"github.com/robotalks/picoboot.go/pkg/report/mqtt"
	"github.com/robotalks/picoboot.go/pkg/report/msgs"
)

var (
	mqttURL = mqtt.DefaultBrokerURL
)

func init() {
	if val := os.Getenv("PICOBOOT_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func printReport(ctx context.Context, msg framework.Message) {
	report := msg.(*mqtt.Report)
	source, port := report.Source, report.Typed.Port
	switch m := report.Msg.(type) {
	case *msgs.ProgressEvent:
		p := m.Progress()
		if p.Err != nil {
			log.Printf("%s %s: %s %s", source, port, color.RedString(string(p.Phase)), p.Err)
			return
		}
		log.Printf("%s %s: %s page %d/%d 0x%04x %.0f%%", source, port, p.Phase, p.Page, p.TotalPages, p.Address, p.Percentage)
	case *msgs.ResultEvent:
		if m.Succeeded() {
			log.Printf("%s %s: %s %d pages, %d bytes in %dms", source, port,
				color.HiGreenString("done"), m.Pages, m.Bytes, m.ElapsedMs)
			return
		}
		log.Printf("%s %s: %s (%s) %s", source, port, color.RedString("failed"), m.Severity, m.Error)
	default:
		log.Printf("%s %s: %s", source, port, report.Msg.Serializable().String())
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	err = framework.NewRunner().HandleSignals().Run(framework.RunFunc(func(ctx context.Context) error {
		mqtt.SubscribeReports(ctx, q, framework.HandleMessageFunc(printReport))
		return framework.RunWithContextCloser(ctx, q, func() error {
			if err := q.Connect(); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	}))
	if err != nil {
		log.Fatalln(err)
	}
}
