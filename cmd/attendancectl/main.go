// Command attendancectl is an operator tool for signing pass links, minting
// venue tokens and rendering QR images outside the API server.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/wrc-program/attendance/internal/daytoken"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrpass"
	"github.com/wrc-program/attendance/internal/qrsign"
)

const usage = `usage: attendancectl <command> [flags]

commands:
  sign       print the signed verification link for an attendee and day
  day-token  generate a venue token and its link
  qr         render a QR code PNG for a link or venue token
`

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "attendancectl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	switch args[0] {
	case "sign":
		return runSign(args[1:], out)
	case "day-token":
		return runDayToken(args[1:], out)
	case "qr":
		return runQR(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runSign(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	uid := fs.String("uid", "", "attendee uid")
	dayArg := fs.String("day", "", "program day (1-4)")
	secret := fs.String("secret", "", "attendee QR secret")
	base := fs.String("base", os.Getenv("PUBLIC_BASE_URL"), "public base url")
	serverSecret := fs.String("server-secret", os.Getenv("QR_SIGNATURE_SECRET"), "server signing secret")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uid == "" || *secret == "" || *base == "" {
		return errors.New("--uid, --secret and --base are required")
	}
	day, err := program.ParseDay(*dayArg)
	if err != nil {
		return err
	}
	signer, err := qrsign.NewSigner(qrsign.ServerSecret(*serverSecret))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, signer.VerificationURL(*base, *uid, day, qrsign.AttendeeSecret(*secret)))
	return nil
}

func runDayToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("day-token", flag.ContinueOnError)
	dayArg := fs.String("day", "", "program day the token is for (1-4)")
	base := fs.String("base", os.Getenv("PUBLIC_BASE_URL"), "public base url")
	if err := fs.Parse(args); err != nil {
		return err
	}
	day, err := program.ParseDay(*dayArg)
	if err != nil {
		return err
	}
	token, err := daytoken.Generate()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s=%s\n", daytoken.EnvKey(day), token)
	if *base != "" {
		fmt.Fprintln(out, daytoken.VenueURL(*base, token))
	}
	return nil
}

func runQR(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("qr", flag.ContinueOnError)
	link := fs.String("url", "", "content to encode")
	token := fs.String("token", "", "venue token; encodes its confirm link instead of --url")
	base := fs.String("base", os.Getenv("PUBLIC_BASE_URL"), "public base url, used with --token")
	dest := fs.StringP("out", "o", "qr.png", "output file")
	size := fs.Int("size", qrpass.ImageSize, "image edge in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	content := *link
	if *token != "" {
		if *base == "" {
			return errors.New("--base is required with --token")
		}
		content = daytoken.VenueURL(*base, *token)
	}
	if content == "" {
		return errors.New("one of --url or --token is required")
	}
	png, err := qrpass.RenderPNG(content, *size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*dest, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *dest, err)
	}
	fmt.Fprintf(out, "wrote %s\n", *dest)
	return nil
}
