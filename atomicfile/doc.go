/*
To write to files in a robust way we should:

- handle error returned by `Close()`

- handle error returned by `Write()`

- remove partially written file if `Write()` or `Close()` returned an error

- never leave a half-written destination visible to concurrent readers

Package atomicfile writes to a temporary file in the destination directory
and renames it over the destination in Close():

	func writeIndex(path string, data []byte) error {
		w, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// no-op after Close()
		defer w.RemoveIfNotClosed()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}

For the common case use atomicfile.WriteFile(path, data).

Temporary files are named ".<name>.tmp<random>". A crash between create and
rename leaves one behind; IsTempName lets directory scans recognize and remove them.
*/
package atomicfile
