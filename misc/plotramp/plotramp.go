// plotramp creates a traitgram from the anceps json output: every edge
// of the tree becomes a line from the parent estimate to the child
// estimate, time on the horizontal axis.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type rampPoint struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

type summary struct {
	Brownian *struct {
		Trait string        `json:"trait"`
		Ramp  [][]rampPoint `json:"ramp"`
	} `json:"brownian"`
}

func main() {
	jsonFileName := flag.String("json", "", "anceps json output")
	outFileName := flag.String("out", "traitgram.png", "output image")
	flag.Parse()

	if *jsonFileName == "" {
		log.Fatal("provide a json file (-json)")
	}

	f, err := os.Open(*jsonFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var s summary
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		log.Fatal(err)
	}
	if s.Brownian == nil || s.Brownian.Ramp == nil {
		log.Fatal("no continuous reconstruction in the json file")
	}

	p, err := plot.New()
	if err != nil {
		panic(err)
	}
	p.Title.Text = s.Brownian.Trait
	p.X.Label.Text = "time"
	p.Y.Label.Text = "value"

	for id, trace := range s.Brownian.Ramp {
		if trace == nil {
			continue
		}
		pts := make(plotter.XYs, len(trace))
		for i, rp := range trace {
			pts[i].X = rp.Time
			pts[i].Y = rp.Value
		}
		err = plotutil.AddLines(p, fmt.Sprintf("%d", id), pts)
		if err != nil {
			panic(err)
		}
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, *outFileName); err != nil {
		panic(err)
	}
}
