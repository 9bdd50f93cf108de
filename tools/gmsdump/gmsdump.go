package main

import (
	"flag"
	"io/ioutil"
	"log"

	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/utils"
)

func main() {
	var in string
	flag.StringVar(&in, "in", "", "Path to gms file")
	flag.Parse()

	if in == "" {
		flag.PrintDefaults()
		return
	}

	data, err := ioutil.ReadFile(in)
	if err != nil {
		log.Fatal(err)
	}

	m, diags, err := gms.NewModelFromData(data)
	for _, d := range diags {
		log.Printf("[gmsdump] %v", d)
	}
	if err != nil {
		log.Fatalf("[gmsdump] %s: %v", in, err)
	}

	utils.Dump(m)
}
