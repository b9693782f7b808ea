// gsl is a command line tool for managing Garmin wearables over their
// USB service protocol: identify a watch, list installed Connect IQ
// apps, install packages and apply store updates.
package main

func main() {
	Execute()
}
