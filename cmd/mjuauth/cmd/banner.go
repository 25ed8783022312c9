package cmd

import (
	"fmt"
	"io"
)

const banner = `
  __  __     _ _   _     _         _   _     
 |  \/  |   | | | | |   / \  _   _| |_| |__  
 | |\/| |_  | | | | |  / _ \| | | | __| '_ \ 
 | |  | | |_| | |_| | / ___ \ |_| | |_| | | |
 |_|  |_|\___/ \___/ /_/   \_\__,_|\__|_| |_|
                                             
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  MJU Univ Auth API - Version %s\x1b[0m\n\n", Version)
}
