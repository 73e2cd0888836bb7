// Command tinyfs is a thin CLI wrapper around package tinyfs, for poking at
// a tinyfs image without wiring up a full gateway adapter.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/go-tinyfs/tinyfs/fsck"
	"github.com/go-tinyfs/tinyfs/tinyfs"
)

func main() {
	app := cli.App{
		Name:  "tinyfs",
		Usage: "Inspect and manipulate a tinyfs disk image",
		Commands: []*cli.Command{
			{
				Name:      "mkfs",
				Usage:     "Format a new tinyfs image",
				ArgsUsage: "IMAGE_PATH",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "inodes", Value: tinyfs.DefaultInodeCount, Usage: "maximum inode count"},
					&cli.UintFlag{Name: "blocks", Value: tinyfs.DefaultDataBlockCount, Usage: "maximum data block count"},
				},
				Action: runMkfs,
			},
			{
				Name:      "ls",
				Usage:     "List a directory's entries",
				ArgsUsage: "IMAGE_PATH PATH",
				Action:    runLs,
			},
			{
				Name:      "cat",
				Usage:     "Print a regular file's contents",
				ArgsUsage: "IMAGE_PATH PATH",
				Action:    runCat,
			},
			{
				Name:      "stat",
				Usage:     "Print a path's metadata",
				ArgsUsage: "IMAGE_PATH PATH",
				Action:    runStat,
			},
			{
				Name:      "fsck",
				Usage:     "Check an image's on-disk consistency",
				ArgsUsage: "IMAGE_PATH",
				Action:    runFsck,
			},
			{
				Name:      "dump-inodes",
				Usage:     "Dump the inode table as CSV",
				ArgsUsage: "IMAGE_PATH",
				Action:    runDumpInodes,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("tinyfs: %s", err.Error())
	}
}

func runMkfs(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("mkfs requires an image path")
	}

	fs, err := tinyfs.Mkfs(path, uint32(c.Uint("inodes")), uint32(c.Uint("blocks")))
	if err != nil {
		return err
	}
	return fs.Unmount()
}

func runLs(c *cli.Context) error {
	path, target := c.Args().Get(0), c.Args().Get(1)
	if path == "" || target == "" {
		return fmt.Errorf("ls requires an image path and a directory path")
	}

	fs, err := tinyfs.Mount(path, true)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	entries, err := fs.ReadDir(target)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		kind := "f"
		if entry.IsDir {
			kind = "d"
		}
		fmt.Printf("%s %8d %s\n", kind, entry.InodeNumber, entry.Name)
	}
	return nil
}

func runCat(c *cli.Context) error {
	path, target := c.Args().Get(0), c.Args().Get(1)
	if path == "" || target == "" {
		return fmt.Errorf("cat requires an image path and a file path")
	}

	fs, err := tinyfs.Mount(path, true)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	stat, err := fs.GetAttr(target)
	if err != nil {
		return err
	}

	buf := make([]byte, stat.Size)
	if _, err := fs.Read(target, 0, buf); err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf)
	return err
}

func runStat(c *cli.Context) error {
	path, target := c.Args().Get(0), c.Args().Get(1)
	if path == "" || target == "" {
		return fmt.Errorf("stat requires an image path and a target path")
	}

	fs, err := tinyfs.Mount(path, true)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	stat, err := fs.GetAttr(target)
	if err != nil {
		return err
	}

	fmt.Printf("inode:   %d\n", stat.InodeNumber)
	fmt.Printf("mode:    %s\n", stat.ModeFlags)
	fmt.Printf("nlink:   %d\n", stat.Nlinks)
	fmt.Printf("size:    %d\n", stat.Size)
	fmt.Printf("blocks:  %d\n", stat.NumBlocks)
	return nil
}

func runFsck(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("fsck requires an image path")
	}

	fs, err := tinyfs.Mount(path, true)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	if err := fsck.CheckConsistency(fs.Device(), fs.Superblock(), fs.InodeStore(), fs.DataBlockStore()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("fsck found inconsistencies")
	}
	fmt.Println("clean")
	return nil
}

func runDumpInodes(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("dump-inodes requires an image path")
	}

	fs, err := tinyfs.Mount(path, true)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	return fsck.DumpInodeTable(os.Stdout, fs.Superblock(), fs.InodeStore())
}
