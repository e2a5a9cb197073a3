package main

import "github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/cmd"

func main() {
	cmd.Execute()
}
